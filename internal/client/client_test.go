package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const mockVersion = `{"version":"1.4.2","commit":"abc1234","board":"Orange Pi Zero","go":"go1.24.10"}`

const mockNetwork = `{"network.txt":{"use_static_ip":0,"ip_address":"192.168.2.120","hostname":"stage-left","ntp_server":"0.0.0.0"}}`

func newTestClient(url string) *Client {
	c := NewClientWithURL(url)
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 5 * time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient("192.168.2.120", 80)

	if client.BaseURL != "http://192.168.2.120:80" {
		t.Errorf("BaseURL = %s, want http://192.168.2.120:80", client.BaseURL)
	}
	if client.HTTPClient == nil || client.HTTPClient.Timeout != DefaultTimeout {
		t.Error("HTTPClient should carry the default timeout")
	}
	if client.MaxRetries != DefaultMaxRetries || !client.UseExponentialBackoff {
		t.Errorf("retry defaults = %d, %v", client.MaxRetries, client.UseExponentialBackoff)
	}

	if NewClientWithURL("http://node:8080/").BaseURL != "http://node:8080" {
		t.Error("trailing slash should be trimmed")
	}

	client.SetTimeout(2 * time.Second)
	client.SetRetry(5, 3*time.Second)
	if client.HTTPClient.Timeout != 2*time.Second || client.MaxRetries != 5 || client.RetryDelay != 3*time.Second {
		t.Error("setters not applied")
	}
}

func TestVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/json/version" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockVersion))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	v, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v.Version != "1.4.2" || v.Board != "Orange Pi Zero" || v.Commit != "abc1234" {
		t.Errorf("Version() = %+v", v)
	}
}

func TestGetJSONRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetJSON(context.Background(), "list")

	var e *Error
	if !errors.As(err, &e) || e.Type != ErrTypeParse {
		t.Errorf("GetJSON() error = %v, want parse error", err)
	}
}

func TestGetConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/network.txt" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(mockNetwork))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	props, err := client.GetConfig(context.Background(), "network.txt")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}

	want := []Property{
		{"use_static_ip", "0"},
		{"ip_address", "192.168.2.120"},
		{"hostname", "stage-left"},
		{"ntp_server", "0.0.0.0"},
	}
	if len(props) != len(want) {
		t.Fatalf("GetConfig() = %v", props)
	}
	for i := range want {
		if props[i] != want[i] {
			t.Errorf("props[%d] = %v, want %v", i, props[i], want[i])
		}
	}

	if _, err := client.GetConfig(context.Background(), "network"); err == nil {
		t.Error("GetConfig() without .txt should fail")
	}
	_, err = client.GetConfig(context.Background(), "missing.txt")
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", StatusCode(err))
	}
}

func TestSetConfig(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.SetConfig(context.Background(), "network.txt", []Property{
		{"hostname", "stage-left"},
		{"use_static_ip", "1"},
	})
	if err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	want := `{"network.txt":{"hostname":"stage-left","use_static_ip":"1"}}`
	if got != want {
		t.Errorf("body = %s, want %s", got, want)
	}

	if err := client.SetConfig(context.Background(), "network.txt", nil); err == nil {
		t.Error("SetConfig() with no values should fail")
	}
}

func TestActions(t *testing.T) {
	type call struct{ method, path, body string }
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	if err := client.Do(ctx, Action{"display", "1"}, Action{"identify", "0"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if err := client.SelectShow(ctx, 12); err != nil {
		t.Fatalf("SelectShow() error = %v", err)
	}
	if err := client.DeleteShow(ctx, 3); err != nil {
		t.Fatalf("DeleteShow() error = %v", err)
	}
	if err := client.Reboot(ctx); err != nil {
		t.Fatalf("Reboot() error = %v", err)
	}

	want := []call{
		{"POST", "/json/action", `{"display":"1","identify":"0"}`},
		{"POST", "/json/action", `{"show":"12"}`},
		{"DELETE", "/json/action", `{"show":"3"}`},
		{"POST", "/json/action", `{"reboot":"1"}`},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}

	if err := client.Do(ctx); err == nil {
		t.Error("Do() with no actions should fail")
	}
	if err := client.SelectShow(ctx, 100); err == nil {
		t.Error("SelectShow(100) should fail")
	}
	if err := client.DeleteShow(ctx, -1); err == nil {
		t.Error("DeleteShow(-1) should fail")
	}
	if len(calls) != len(want) {
		t.Error("invalid calls must not reach the node")
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"server error retried", http.StatusInternalServerError, 4},
		{"timeout retried", http.StatusRequestTimeout, 4},
		{"bad request not retried", http.StatusBadRequest, 1},
		{"not implemented not retried", http.StatusNotImplemented, 1},
		{"too large not retried", http.StatusRequestEntityTooLarge, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := newTestClient(server.URL).Ping(context.Background())
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode = %d, want %d", StatusCode(err), tt.status)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestActionsNotResent(t *testing.T) {
	tests := []struct {
		name      string
		call      func(c *Client) error
		wantCalls int32
	}{
		{"identify", func(c *Client) error {
			return c.Do(context.Background(), Action{Key: "identify", Value: "1"})
		}, 1},
		{"select show", func(c *Client) error { return c.SelectShow(context.Background(), 4) }, 1},
		{"delete show", func(c *Client) error { return c.DeleteShow(context.Background(), 4) }, 1},
		{"set config", func(c *Client) error {
			return c.SetConfig(context.Background(), "network.txt", []Property{{Key: "hostname", Value: "stage-left"}})
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			err := tt.call(newTestClient(server.URL))
			if StatusCode(err) != http.StatusInternalServerError {
				t.Errorf("StatusCode = %d, want 500", StatusCode(err))
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	refused := &Error{Type: ErrTypeConnectionRefused, Retryable: true}
	timeout := &Error{Type: ErrTypeTimeout, Retryable: true}

	if !shouldRetry(http.MethodPost, "/json/action", refused) {
		t.Error("an action that never reached the node should be resent")
	}
	if shouldRetry(http.MethodPost, "/json/action", timeout) {
		t.Error("a timed out action must not be resent")
	}
	if shouldRetry(http.MethodDelete, "/json/action", timeout) {
		t.Error("a timed out delete must not be resent")
	}
	if !shouldRetry(http.MethodGet, "/json/version", timeout) {
		t.Error("a timed out read should be retried")
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(mockVersion))
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := newTestClient("http://" + addr)
	client.MaxRetries = 0

	err = client.Ping(context.Background())
	var e *Error
	if !errors.As(err, &e) || e.Type != ErrTypeConnectionRefused {
		t.Errorf("Ping() error = %v, want connection refused", err)
	}
	if !IsRetryable(err) {
		t.Error("connection refused should be retryable")
	}
}

func TestContextCancelStopsRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.RetryDelay = time.Hour
	client.MaxRetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx); err == nil {
		t.Error("Ping() should fail")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancelled context did not stop the retry wait")
	}
}

func TestShortMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{newHTTPError(404, ""), "Not available on this node (HTTP 404)"},
		{newHTTPError(501, ""), "Method not enabled on node (HTTP 501)"},
		{newHTTPError(520, ""), "Node error (HTTP 520)"},
		{&Error{Type: ErrTypeTimeout}, "Node not responding (timeout)"},
		{newValidationError("no actions"), "no actions"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := ShortMessage(tt.err); got != tt.want {
			t.Errorf("ShortMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	e := newHTTPError(400, "<html><body>400 Bad Request</body></html>")
	if strings.Contains(e.Message, "<html>") {
		t.Errorf("HTML error pages should not be copied into the message: %s", e.Message)
	}
	if !strings.Contains(e.Error(), "400 Bad Request") {
		t.Errorf("Error() = %s", e.Error())
	}
}
