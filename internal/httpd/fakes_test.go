package httpd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vanvught/rpidmx512-sub012/internal/jsonprops"
	"github.com/vanvught/rpidmx512-sub012/internal/properties"
	"github.com/vanvught/rpidmx512-sub012/internal/routes"
)

type fakeTransport struct {
	out   map[uint32]*bytes.Buffer
	err   error
	calls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{out: make(map[uint32]*bytes.Buffer)}
}

func (f *fakeTransport) Write(connID uint32, p []byte) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	b, ok := f.out[connID]
	if !ok {
		b = &bytes.Buffer{}
		f.out[connID] = b
	}
	b.Write(p)
	return nil
}

func (f *fakeTransport) take(connID uint32) []byte {
	b, ok := f.out[connID]
	if !ok {
		return nil
	}
	out := append([]byte(nil), b.Bytes()...)
	b.Reset()
	return out
}

type fakeStore struct {
	files     map[string][][2]string
	formatGet properties.Format
	formatSet properties.Format
	setBodies [][]byte
	setErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][][2]string{
		"network.txt": {{"hostname", "node-1"}, {"use_dhcp", "1"}},
		"empty.txt":   nil,
	}}
}

func (s *fakeStore) Get(name string, buf []byte) (int, error) {
	s.formatGet = properties.CurrentFormat()
	pairs, ok := s.files[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownConfig, name)
	}
	if pairs == nil {
		return 0, nil
	}
	b := properties.NewBuilderCurrent(name, buf)
	for _, p := range pairs {
		if !b.Add(p[0], p[1], true) {
			return 0, ErrNoSpace
		}
	}
	return b.Size(), nil
}

func (s *fakeStore) Set(body []byte) error {
	s.formatSet = properties.CurrentFormat()
	s.setBodies = append(s.setBodies, append([]byte(nil), body...))
	if s.setErr != nil {
		return s.setErr
	}
	tmp := append([]byte(nil), body...)
	if _, err := jsonprops.ConvertJSONFile(tmp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

type fakeDevice struct {
	rebootEnabled bool
	rdmDisabled   bool
	missingShows  map[uint32]bool
	calls         []string
	failOn        string
}

func (d *fakeDevice) record(call string) error {
	d.calls = append(d.calls, call)
	if call == d.failOn {
		return errors.New("actuator failure")
	}
	return nil
}

func (d *fakeDevice) BoardName() string   { return "Orange Pi Zero" }
func (d *fakeDevice) RebootEnabled() bool { return d.rebootEnabled }
func (d *fakeDevice) RDMEnabled() bool    { return !d.rdmDisabled }
func (d *fakeDevice) ShowExists(n uint32) bool {
	return !d.missingShows[n]
}
func (d *fakeDevice) Reboot() error       { return d.record("reboot") }
func (d *fakeDevice) SetDisplay(on bool) error {
	return d.record(fmt.Sprintf("display:%v", on))
}
func (d *fakeDevice) Identify(on bool) error { return d.record(fmt.Sprintf("identify:%v", on)) }
func (d *fakeDevice) SetDate(t time.Time) error {
	return d.record("date:" + t.Format(DateLayout))
}
func (d *fakeDevice) SetRTC(t time.Time) error {
	return d.record("rtc:" + t.Format(DateLayout))
}
func (d *fakeDevice) EnableRDM(on bool) error { return d.record(fmt.Sprintf("rdm:%v", on)) }
func (d *fakeDevice) SelectShow(n uint32) error {
	return d.record("show:" + strconv.Itoa(int(n)))
}
func (d *fakeDevice) DeleteShow(n uint32) error {
	return d.record("delete-show:" + strconv.Itoa(int(n)))
}

type fakeContent map[string][]byte

func (c fakeContent) Lookup(file string) ([]byte, bool) {
	data, ok := c[file]
	return data, ok
}

type harness struct {
	transport *fakeTransport
	store     *fakeStore
	device    *fakeDevice
	daemon    *Daemon
	args      []string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		transport: newFakeTransport(),
		store:     newFakeStore(),
		device:    &fakeDevice{},
	}
	producers := Producers{
		routes.Version: func(buf []byte, arg string) (int, error) {
			return copy(buf, `{"version":"1.4.2","board":"Orange Pi Zero"}`), nil
		},
		routes.DMXStatus: func(buf []byte, arg string) (int, error) {
			h.args = append(h.args, arg)
			return copy(buf, `{"port":"`+arg+`"}`), nil
		},
		routes.Uptime: func(buf []byte, arg string) (int, error) {
			return 0, ErrNoSpace
		},
	}
	h.daemon = New(Deps{
		Transport: h.transport,
		Store:     h.store,
		Device:    h.device,
		Producers: producers,
		Content: fakeContent{
			"index.html": []byte("<html>index</html>"),
			"styles.css": []byte("body{}"),
			"index.js":   []byte("var x;"),
		},
	}, opts)
	return h
}

// do feeds the chunks to a fresh request on connection 1 and returns the
// raw response bytes. It fails when the response arrives before the last
// chunk or not at all.
func (h *harness) do(t *testing.T, chunks ...string) []byte {
	t.Helper()
	req := h.daemon.NewRequest(1)
	for i, c := range chunks {
		answered, err := req.HandleRequest([]byte(c))
		require.NoError(t, err)
		if i < len(chunks)-1 {
			require.False(t, answered, "answered early at chunk %d", i)
		} else {
			require.True(t, answered, "not answered after last chunk")
		}
	}
	return h.transport.take(1)
}

type response struct {
	status int
	header http.Header
	body   string
}

func parseResponse(t *testing.T, raw []byte) response {
	t.Helper()
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, strconv.Itoa(len(body)), resp.Header.Get("Content-Length"))
	require.Equal(t, "close", resp.Header.Get("Connection"))
	require.Equal(t, "Orange Pi Zero", resp.Header.Get("Server"))

	return response{status: resp.StatusCode, header: resp.Header, body: string(body)}
}
