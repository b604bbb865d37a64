package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/vanvught/rpidmx512-sub012/internal/properties"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// maxBody bounds what is read from a response and what SetConfig will
	// build; the node cannot hold more in one request anyway.
	maxBody = 64 * 1024

	// maxShow is the highest show number a node accepts.
	maxShow = 99
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to a node's /json API.
type Client struct {
	// BaseURL is the base URL of the node (e.g., "http://192.168.2.120:80")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// VersionInfo is the body of /json/version.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Board   string `json:"board"`
	Go      string `json:"go"`
}

// Property is one key/value pair of a configuration file.
type Property struct {
	Key   string
	Value string
}

// Action is one key/value pair of a POST /json/action body. Order is kept.
type Action struct {
	Key   string
	Value string
}

// NewClient creates a client for the node at host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", host, port))
}

// NewClientWithURL creates a client with a full base URL.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the node answers /json/version.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetJSON(ctx, "version")
	return err
}

// Version fetches and decodes /json/version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	body, err := c.GetJSON(ctx, "version")
	if err != nil {
		return nil, err
	}
	var v VersionInfo
	if err := jsonAPI.Unmarshal(body, &v); err != nil {
		return nil, newParseError("failed to parse version", err)
	}
	return &v, nil
}

// GetJSON fetches /json/<path> and returns the raw body. path may carry an
// argument after '?', e.g. "dmx/status?port=1".
func (c *Client) GetJSON(ctx context.Context, path string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, "/json/"+strings.TrimPrefix(path, "/"), nil)
	if err != nil {
		return nil, err
	}
	if !jsonAPI.Valid(body) {
		return nil, newParseError("response is not JSON", nil)
	}
	return body, nil
}

// Directory lists the configuration files the node stores.
func (c *Client) Directory(ctx context.Context) ([]string, error) {
	body, err := c.GetJSON(ctx, "directory")
	if err != nil {
		return nil, err
	}
	var dir struct {
		Files []string `json:"files"`
	}
	if err := jsonAPI.Unmarshal(body, &dir); err != nil {
		return nil, newParseError("failed to parse directory", err)
	}
	return dir.Files, nil
}

// GetConfig fetches one configuration file. Values come back in file order
// as their literal text.
func (c *Client) GetConfig(ctx context.Context, name string) ([]Property, error) {
	if !strings.HasSuffix(name, ".txt") {
		return nil, newValidationError(fmt.Sprintf("configuration name %q must end in .txt", name))
	}
	body, err := c.GetJSON(ctx, name)
	if err != nil {
		return nil, err
	}

	iter := jsonAPI.BorrowIterator(body)
	defer jsonAPI.ReturnIterator(iter)

	var props []Property
	iter.ReadObjectCB(func(outer *jsoniter.Iterator, file string) bool {
		return outer.ReadObjectCB(func(inner *jsoniter.Iterator, key string) bool {
			var value string
			switch inner.WhatIsNext() {
			case jsoniter.StringValue:
				value = inner.ReadString()
			default:
				value = string(inner.SkipAndReturnBytes())
			}
			props = append(props, Property{Key: key, Value: value})
			return true
		})
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, newParseError("failed to parse configuration", iter.Error)
	}
	return props, nil
}

// SetConfig stores values into the named configuration file. Keys left out
// keep their current value on the node.
func (c *Client) SetConfig(ctx context.Context, name string, values []Property) error {
	if len(values) == 0 {
		return newValidationError("no values to set")
	}

	buf := make([]byte, maxBody)
	b := properties.NewBuilder(name, buf, properties.FormatJSON)
	for _, p := range values {
		if !b.Add(p.Key, p.Value, true) {
			return newValidationError("configuration does not fit in one request")
		}
	}

	_, err := c.do(ctx, http.MethodPost, "/json", b.Bytes())
	return err
}

// Do performs actions in one request. The node validates all of them
// before running any, and runs a reboot last.
func (c *Client) Do(ctx context.Context, actions ...Action) error {
	if len(actions) == 0 {
		return newValidationError("no actions")
	}
	_, err := c.do(ctx, http.MethodPost, "/json/action", encodeActions(actions))
	return err
}

// SelectShow loads show n on the node.
func (c *Client) SelectShow(ctx context.Context, n int) error {
	if n < 0 || n > maxShow {
		return newValidationError(fmt.Sprintf("show %d out of range 0-%d", n, maxShow))
	}
	return c.Do(ctx, Action{Key: "show", Value: strconv.Itoa(n)})
}

// DeleteShow removes show n from the node.
func (c *Client) DeleteShow(ctx context.Context, n int) error {
	if n < 0 || n > maxShow {
		return newValidationError(fmt.Sprintf("show %d out of range 0-%d", n, maxShow))
	}
	body := encodeActions([]Action{{Key: "show", Value: strconv.Itoa(n)}})
	_, err := c.do(ctx, http.MethodDelete, "/json/action", body)
	return err
}

// Reboot asks the node to restart. Nodes answer 400 when reboot is disabled.
func (c *Client) Reboot(ctx context.Context) error {
	return c.Do(ctx, Action{Key: "reboot", Value: "1"})
}

func encodeActions(actions []Action) []byte {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, a := range actions {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(a.Key)
		stream.WriteString(a.Value)
	}
	stream.WriteObjectEnd()
	return append([]byte(nil), stream.Buffer()...)
}

// do runs one request with retries and exponential backoff, see shouldRetry.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, classifyNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		resp, err := c.attempt(ctx, method, path, body)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !shouldRetry(method, path, err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// shouldRetry allows resending reads and configuration writes, which the
// node applies idempotently. Actions are resent only when the node never
// saw them, so a slow identify or show delete does not run twice.
func shouldRetry(method, path string, err error) bool {
	if !IsRetryable(err) {
		return false
	}
	if method == http.MethodGet || (method == http.MethodPost && path == "/json") {
		return true
	}
	return requestNotSent(err)
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, newValidationError(fmt.Sprintf("failed to create %s request: %v", method, err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, classifyNetworkError("failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(resp.StatusCode, string(data))
	}
	return data, nil
}
