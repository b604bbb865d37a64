package device

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/routes"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type staticList []string

func (l staticList) List() []string { return l }

func newTestDevice(t *testing.T, features Features) (*Device, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)}
	showDir := t.TempDir()
	d := New(Options{
		BoardName:   "Orange Pi Zero",
		Features:    features,
		ShowfileDir: showDir,
		StorageDir:  t.TempDir(),
		Version:     "1.4.2",
		Commit:      "abc1234",
		Clock:       clock.now,
		Interfaces: func() ([]net.Interface, error) {
			return []net.Interface{
				{Index: 1, MTU: 65536, Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
				{Index: 2, MTU: 1500, Name: "eth0", HardwareAddr: net.HardwareAddr{0x02, 0, 0, 0, 0, 1}},
			}, nil
		},
	})
	return d, clock
}

func produce(t *testing.T, p httpd.Producers, r routes.Route, arg string) map[string]any {
	t.Helper()
	fn, ok := p[r]
	require.True(t, ok, "no producer for %s", r)
	buf := make([]byte, 4096)
	n, err := fn(buf, arg)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf[:n], &doc), string(buf[:n]))
	return doc
}

func writeShow(t *testing.T, d *Device, n uint32) {
	t.Helper()
	path := filepath.Join(d.opts.ShowfileDir, ShowFileName(n))
	require.NoError(t, os.WriteFile(path, []byte("#show\n"), 0o644))
}

func TestActuators(t *testing.T) {
	d, _ := newTestDevice(t, Features{RDM: true})

	require.True(t, d.RDMEnabled())
	require.True(t, d.State().DisplayOn)
	require.NoError(t, d.SetDisplay(false))
	require.NoError(t, d.Identify(true))
	require.NoError(t, d.EnableRDM(true))

	st := d.State()
	require.False(t, st.DisplayOn)
	require.True(t, st.Identifying)
	require.True(t, st.RDMEnabled)
}

func TestReboot(t *testing.T) {
	d, _ := newTestDevice(t, Features{})
	require.ErrorIs(t, d.Reboot(), httpd.ErrDisabled)

	called := 0
	d.opts.RebootEnabled = true
	d.opts.OnReboot = func() { called++ }
	require.True(t, d.RebootEnabled())
	require.NoError(t, d.Reboot())
	require.Equal(t, 1, called)
	require.Equal(t, 1, d.State().Reboots)
}

func TestDisabledFeatures(t *testing.T) {
	d, _ := newTestDevice(t, Features{})

	require.False(t, d.RDMEnabled())
	require.False(t, d.ShowExists(1))
	require.ErrorIs(t, d.EnableRDM(true), httpd.ErrDisabled)
	require.ErrorIs(t, d.SelectShow(1), httpd.ErrDisabled)
	require.ErrorIs(t, d.DeleteShow(1), httpd.ErrDisabled)

	p := d.Producers(nil)
	for _, r := range []routes.Route{routes.DMXPorts, routes.DMXStatus, routes.PixelType,
		routes.RDMPorts, routes.RDMQueue, routes.RDMTOD,
		routes.ShowfileStatus, routes.ShowfileDirectory, routes.Directory} {
		_, ok := p[r]
		require.False(t, ok, "%s must not be served", r)
	}
}

func TestClocks(t *testing.T) {
	d, clock := newTestDevice(t, Features{})

	target := time.Date(2030, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, d.SetDate(target))
	require.True(t, d.Now().Equal(target))

	clock.t = clock.t.Add(90 * time.Second)
	require.True(t, d.Now().Equal(target.Add(90*time.Second)))
	require.Equal(t, 90*time.Second, d.Uptime())

	// The RTC is independent of the date.
	require.True(t, d.RTC().Equal(clock.t))
	require.NoError(t, d.SetRTC(target))
	doc := produce(t, d.Producers(nil), routes.RTC, "")
	require.Equal(t, "2030-01-02T03:04:05", doc["rtc"])
}

func TestShows(t *testing.T) {
	d, _ := newTestDevice(t, Features{Showfile: true})
	writeShow(t, d, 3)
	writeShow(t, d, 12)
	require.NoError(t, os.WriteFile(filepath.Join(d.opts.ShowfileDir, "notes.txt"), nil, 0o644))

	shows, err := d.Shows()
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 12}, shows)

	require.True(t, d.ShowExists(3))
	require.False(t, d.ShowExists(4))
	require.False(t, d.ShowExists(MaxShow+1))
	require.ErrorIs(t, d.SelectShow(4), httpd.ErrNotFound)
	require.ErrorIs(t, d.SelectShow(MaxShow+1), httpd.ErrMalformed)

	require.NoError(t, d.SelectShow(12))
	p := d.Producers(nil)
	doc := produce(t, p, routes.ShowfileStatus, "")
	require.Equal(t, float64(12), doc["show"])
	require.Equal(t, "loaded", doc["status"])

	require.NoError(t, d.DeleteShow(12))
	require.False(t, d.State().ShowLoaded)
	require.False(t, d.ShowExists(12))
	require.ErrorIs(t, d.DeleteShow(12), httpd.ErrNotFound)

	doc = produce(t, p, routes.ShowfileDirectory, "")
	require.Equal(t, []any{float64(3)}, doc["shows"])
}

func TestShowFileName(t *testing.T) {
	for _, n := range []uint32{0, 7, 42, 99} {
		got, ok := parseShowFileName(ShowFileName(n))
		require.True(t, ok)
		require.Equal(t, n, got)
	}
	for _, name := range []string{"show1.txt", "showAB.txt", "show01.json", "slow01.txt"} {
		_, ok := parseShowFileName(name)
		require.False(t, ok, name)
	}
}

func TestProducers(t *testing.T) {
	d, clock := newTestDevice(t, Features{DMX: true, RDM: true})
	clock.t = clock.t.Add(42 * time.Second)
	p := d.Producers(staticList{"network.txt", "display.txt"})

	doc := produce(t, p, routes.Version, "")
	require.Equal(t, "1.4.2", doc["version"])
	require.Equal(t, "Orange Pi Zero", doc["board"])

	doc = produce(t, p, routes.Uptime, "")
	require.Equal(t, float64(42), doc["uptime"])

	doc = produce(t, p, routes.List, "")
	list := doc["list"].(map[string]any)
	require.Equal(t, "Orange Pi Zero", list["name"])
	require.Equal(t, float64(dmxPorts), list["node"].(map[string]any)["ports"])

	doc = produce(t, p, routes.Directory, "")
	require.Equal(t, []any{"network.txt", "display.txt"}, doc["files"])

	doc = produce(t, p, routes.Display, "")
	require.Equal(t, true, doc["on"])

	doc = produce(t, p, routes.PhyStatus, "")
	ifaces := doc["interfaces"].([]any)
	require.Len(t, ifaces, 2)
	eth := ifaces[1].(map[string]any)
	require.Equal(t, "eth0", eth["name"])
	require.Equal(t, "02:00:00:00:00:01", eth["mac"])
	require.Equal(t, false, eth["up"])

	doc = produce(t, p, routes.DMXPorts, "")
	require.Len(t, doc["ports"], dmxPorts)

	doc = produce(t, p, routes.DMXStatus, "port=2")
	require.Equal(t, float64(2), doc["port"])

	doc = produce(t, p, routes.PixelType, "")
	require.Len(t, doc["types"], len(pixelTypes))

	doc = produce(t, p, routes.PixelType, "WS2812B")
	require.Equal(t, "GRB", doc["colours"])

	doc = produce(t, p, routes.RDMTOD, "1")
	require.Equal(t, []any{}, doc["uids"])

	doc = produce(t, p, routes.RDMQueue, "")
	require.Equal(t, []any{}, doc["queue"])
}

func TestProducerErrors(t *testing.T) {
	d, _ := newTestDevice(t, Features{DMX: true})
	p := d.Producers(nil)
	buf := make([]byte, 4096)

	_, err := p[routes.DMXStatus](buf, "9")
	require.ErrorIs(t, err, httpd.ErrNotFound)

	_, err = p[routes.DMXStatus](buf, "x")
	require.ErrorIs(t, err, httpd.ErrMalformed)

	_, err = p[routes.PixelType](buf, "neon")
	require.ErrorIs(t, err, httpd.ErrNotFound)

	_, err = p[routes.Version](make([]byte, 10), "")
	require.ErrorIs(t, err, httpd.ErrNoSpace)
}

func TestStorageDirectory(t *testing.T) {
	d, _ := newTestDevice(t, Features{})
	require.NoError(t, os.WriteFile(filepath.Join(d.opts.StorageDir, "network.txt"), []byte("#network.txt\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d.opts.StorageDir, "network.txt.tmp"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(d.opts.StorageDir, "sub"), 0o755))

	doc := produce(t, d.Producers(nil), routes.StorageDirectory, "")
	files := doc["files"].([]any)
	require.Len(t, files, 1)
	require.Equal(t, "network.txt", files[0].(map[string]any)["name"])
	require.Equal(t, float64(13), files[0].(map[string]any)["size"])
}

type captureTransport struct{ out []byte }

func (c *captureTransport) Write(connID uint32, p []byte) error {
	c.out = append(c.out, p...)
	return nil
}

func TestRejectedActionLeavesStateAlone(t *testing.T) {
	tests := []struct {
		name     string
		features Features
		body     string
		status   string
	}{
		{"rdm missing", Features{}, `{"display":"0","rdm":"1"}`, "HTTP/1.1 400 "},
		{"show missing", Features{Showfile: true}, `{"display":"0","show":"5"}`, "HTTP/1.1 404 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDevice(t, tt.features)
			transport := &captureTransport{}
			daemon := httpd.New(httpd.Deps{Transport: transport, Device: d},
				httpd.Options{ReceiveSize: 1024, ContentSize: 1024, MaxURILength: 128, Showfile: tt.features.Showfile})

			raw := "POST /json/action HTTP/1.1\r\n" +
				"Content-Type: application/json\r\n" +
				"Content-Length: " + strconv.Itoa(len(tt.body)) + "\r\n\r\n" + tt.body
			answered, err := daemon.NewRequest(1).HandleRequest([]byte(raw))
			require.NoError(t, err)
			require.True(t, answered)

			require.True(t, strings.HasPrefix(string(transport.out), tt.status), string(transport.out))
			require.True(t, d.State().DisplayOn)
		})
	}
}
