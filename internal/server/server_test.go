package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vanvught/rpidmx512-sub012/internal/configstore"
	"github.com/vanvught/rpidmx512-sub012/internal/device"
	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
)

func startServer(t *testing.T, idle time.Duration) (*Server, string) {
	t.Helper()

	schema, err := configstore.DefaultSchema()
	require.NoError(t, err)
	store, err := configstore.New(t.TempDir(), schema)
	require.NoError(t, err)
	dev := device.New(device.Options{BoardName: "test-board", Version: "1.4.2"})

	srv := New(Config{IdleTimeout: idle}, httpd.Deps{
		Store:     store,
		Device:    dev,
		Producers: dev.Producers(store),
	}, httpd.Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return srv, ln.Addr().String()
}

func readResponse(t *testing.T, conn net.Conn) (*http.Response, string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestServeSplitRequest(t *testing.T) {
	_, addr := startServer(t, time.Second)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /json/vers"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte("ion HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	resp, body := readResponse(t, conn)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "test-board", resp.Header.Get("Server"))
	require.Contains(t, body, `"version":"1.4.2"`)

	// The server closes after answering.
	n, err := conn.Read(make([]byte, 1))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestServeWithHTTPClient(t *testing.T) {
	_, addr := startServer(t, time.Second)
	base := "http://" + addr

	resp, err := http.Post(base+"/json", "application/json",
		strings.NewReader(`{"network.txt":{"hostname":"bench-7"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/json/network.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"hostname":"bench-7"`)

	resp, err = http.Get(base + "/missing.txt")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIdleTimeout(t *testing.T) {
	srv, addr := startServer(t, 100*time.Millisecond)

	t.Run("partial request", func(t *testing.T) {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("POST /json HTTP/1.1\r\nContent-Length: 20\r\n\r\n{"))
		require.NoError(t, err)

		resp, _ := readResponse(t, conn)
		require.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
	})

	t.Run("nothing received", func(t *testing.T) {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		data, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Empty(t, data)
	})

	require.Eventually(t, func() bool { return srv.ActiveConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestConcurrentConnections(t *testing.T) {
	_, addr := startServer(t, time.Second)

	// Interleave two half-sent requests; each must keep its own state.
	a, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer a.Close()
	b, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Write([]byte("GET /json/uptime HTTP/1.1\r\n"))
	require.NoError(t, err)
	_, err = b.Write([]byte("GET /json/nothing.txt HTTP/1.1\r\n"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = b.Write([]byte("\r\n"))
	require.NoError(t, err)
	_, err = a.Write([]byte("\r\n"))
	require.NoError(t, err)

	respB, _ := readResponse(t, b)
	require.Equal(t, http.StatusBadRequest, respB.StatusCode)
	respA, body := readResponse(t, a)
	require.Equal(t, http.StatusOK, respA.StatusCode)
	require.Contains(t, body, `"uptime"`)
}

func TestWriteUnknownConnection(t *testing.T) {
	srv := New(Config{}, httpd.Deps{}, httpd.Options{})
	require.ErrorIs(t, srv.Write(99, []byte("x")), net.ErrClosed)
	require.Nil(t, srv.Addr())
}
