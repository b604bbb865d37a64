package httpd

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/vanvught/rpidmx512-sub012/internal/properties"
)

func get(uri string) string {
	return "GET " + uri + " HTTP/1.1\r\nHost: 192.168.2.120\r\n\r\n"
}

func TestGetConfigRendersJSON(t *testing.T) {
	for _, uri := range []string{"/network.txt", "/json/network.txt"} {
		t.Run(uri, func(t *testing.T) {
			defer properties.PushFormat(properties.FormatFlat)()
			h := newHarness(t, Options{})

			resp := parseResponse(t, h.do(t, get(uri)))

			require.Equal(t, 200, resp.status)
			require.Equal(t, "application/json", resp.header.Get("Content-Type"))
			require.Equal(t, properties.FormatJSON, h.store.formatGet)
			require.Equal(t, properties.FormatFlat, properties.CurrentFormat(), "format must be restored")

			var doc map[string]map[string]string
			require.NoError(t, jsoniter.Unmarshal([]byte(resp.body), &doc))
			require.Equal(t, map[string]string{"hostname": "node-1", "use_dhcp": "1"}, doc["network.txt"])
		})
	}
}

func TestGetConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		contentSize int
		want        int
	}{
		{"unknown file", "/missing.txt", 0, 400},
		{"renders nothing", "/empty.txt", 0, 404},
		{"invalid name", "/bad!name.txt", 0, 400},
		{"path traversal", "/json/../network.txt", 0, 400},
		{"suffix only", "/.txt", 0, 400},
		{"json name without suffix", "/json/network", 0, 400},
		{"content buffer too small", "/network.txt", 16, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{ContentSize: tt.contentSize})
			resp := parseResponse(t, h.do(t, get(tt.uri)))
			require.Equal(t, tt.want, resp.status)
		})
	}
}

func TestGetRoutes(t *testing.T) {
	h := newHarness(t, Options{})

	resp := parseResponse(t, h.do(t, get("/json/dmx/status?2")))
	require.Equal(t, 200, resp.status)
	require.Equal(t, `{"port":"2"}`, resp.body)
	require.Equal(t, []string{"2"}, h.args)

	resp = parseResponse(t, h.do(t, get("/json/dmx/status")))
	require.Equal(t, 200, resp.status)
	require.Equal(t, []string{"2", ""}, h.args)

	// Known route, feature absent.
	resp = parseResponse(t, h.do(t, get("/json/rdm/tod")))
	require.Equal(t, 404, resp.status)

	// Producer failure.
	resp = parseResponse(t, h.do(t, get("/json/uptime")))
	require.Equal(t, 500, resp.status)
}

func TestGetStatic(t *testing.T) {
	tests := []struct {
		uri         string
		status      int
		contentType string
		body        string
	}{
		{"/", 200, "text/html", "<html>index</html>"},
		{"/index.html", 200, "text/html", "<html>index</html>"},
		{"/styles.css", 200, "text/css", "body{}"},
		{"/index.js", 200, "text/javascript", "var x;"},
		{"/dsa", 404, "text/html", ""},
		{"/dmx", 404, "text/html", ""},
		{"/favicon.ico", 404, "text/html", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			h := newHarness(t, Options{})
			resp := parseResponse(t, h.do(t, get(tt.uri)))

			require.Equal(t, tt.status, resp.status)
			require.Equal(t, tt.contentType, resp.header.Get("Content-Type"))
			if tt.body != "" {
				require.Equal(t, tt.body, resp.body)
			}
		})
	}
}

func TestGetWithoutStore(t *testing.T) {
	tr := newFakeTransport()
	d := New(Deps{Transport: tr, Device: &fakeDevice{}}, Options{})

	_, err := d.NewRequest(1).HandleRequest([]byte(get("/network.txt")))
	require.NoError(t, err)
	require.Equal(t, 404, parseResponse(t, tr.take(1)).status)
}

func TestValidConfigName(t *testing.T) {
	valid := []string{"network.txt", "rdm_device.txt", "e131-1.txt", "A.txt"}
	invalid := []string{"", ".txt", "network", "network.json", "a b.txt", "../x.txt", "dir/x.txt",
		"averyveryveryveryverylongconfigname.txt"}

	for _, name := range valid {
		require.True(t, validConfigName(name), name)
	}
	for _, name := range invalid {
		require.False(t, validConfigName(name), name)
	}
}
