package httpd

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/logging"
)

var errNoTransport = errors.New("no transport")

// Daemon holds what every connection shares: collaborators and sizes.
type Daemon struct {
	deps Deps
	opts Options
}

// New returns a Daemon. Zero sizes in opts are replaced by DefaultOptions.
func New(deps Deps, opts Options) *Daemon {
	def := DefaultOptions()
	if opts.ReceiveSize <= 0 {
		opts.ReceiveSize = def.ReceiveSize
	}
	if opts.ContentSize <= 0 {
		opts.ContentSize = def.ContentSize
	}
	if opts.MaxURILength <= 0 {
		opts.MaxURILength = def.MaxURILength
	}
	if deps.Producers == nil {
		deps.Producers = Producers{}
	}
	return &Daemon{deps: deps, opts: opts}
}

// Options returns the effective options.
func (d *Daemon) Options() Options {
	return d.opts
}

// Request is the per-connection state machine. It is created when a
// connection is accepted and fed with HandleRequest whenever bytes arrive.
// A Request is not safe for concurrent use; the network layer must call it
// from one goroutine.
type Request struct {
	d      *Daemon
	connID uint32

	// receive buffer, appended to until the request is answered
	buf []byte
	n   int

	phase         Phase
	method        Method
	uri           span
	headerLen     int
	contentLength int
	isJSON        bool
	isAction      bool

	// response
	content     []byte
	status      Status
	contentType ContentType
	body        []byte
	header      []byte
}

// NewRequest allocates the fixed buffers for one connection.
func (d *Daemon) NewRequest(connID uint32) *Request {
	return &Request{
		d:       d,
		connID:  connID,
		buf:     make([]byte, d.opts.ReceiveSize),
		content: make([]byte, d.opts.ContentSize),
		header:  make([]byte, 0, 256),
		status:  StatusUnknownError,
	}
}

// ConnID returns the connection this request belongs to.
func (r *Request) ConnID() uint32 {
	return r.connID
}

// Phase returns the current lifecycle phase.
func (r *Request) Phase() Phase {
	return r.phase
}

// Status returns the status of the last response written.
func (r *Request) Status() Status {
	return r.status
}

// Pending reports whether part of a request has been received but not
// answered yet.
func (r *Request) Pending() bool {
	return r.n > 0
}

// HandleRequest appends data to the receive buffer and advances the state
// machine. data is only borrowed for the duration of the call. It returns
// answered=true when a response was written, after which the Request is
// ready for the next request. A false return with a nil error means more
// bytes are needed. The error reports a Transport failure.
func (r *Request) HandleRequest(data []byte) (answered bool, err error) {
	logging.LogRawBytes("received", data)

	// Answered is transient: the next byte starts a new request.
	if r.phase == PhaseAnswered {
		r.phase = PhaseAwaitingHeader
	}

	space := len(r.buf) - r.n
	dropped := len(data) > space
	if dropped {
		data = data[:space]
	}
	r.n += copy(r.buf[r.n:], data)

	if r.phase == PhaseAwaitingHeader {
		st, done := r.parseHeader()
		if !done {
			if !dropped && r.n < len(r.buf) {
				return false, nil
			}
			// The header alone does not fit the receive buffer.
			if bytes.IndexByte(r.buf[:r.n], '\n') < 0 {
				return r.respond(StatusRequestURITooLong)
			}
			return r.respond(StatusRequestEntityTooLarge)
		}
		if st != StatusOK {
			return r.respond(st)
		}

		uri := r.uri.of(r.buf)
		r.isAction = string(uri) == uriAction
		logging.LogHTTPRequest(r.connID, r.method.String(), string(uri), r.contentLength)

		if r.method == MethodGet {
			r.phase = PhaseComplete
			return r.respond(r.handleGet())
		}
		if r.headerLen+r.contentLength > len(r.buf) {
			return r.respond(StatusRequestEntityTooLarge)
		}
		r.phase = PhaseAwaitingBody
	}

	// Bytes past Content-Length can only have been dropped above when the
	// body itself already fits, because headerLen+contentLength <= len(buf).
	if r.n-r.headerLen < r.contentLength {
		logging.Debug("awaiting body",
			zap.Uint32("conn_id", r.connID),
			zap.Int("received", r.n-r.headerLen),
			zap.Int("content_length", r.contentLength),
		)
		return false, nil
	}

	r.phase = PhaseComplete
	return r.respond(r.handleBody())
}

// Expire is called by the network layer when the connection went idle. A
// partially received request is answered with 408.
func (r *Request) Expire() (bool, error) {
	if r.n == 0 {
		return false, nil
	}
	return r.respond(StatusRequestTimeout)
}

// Reset discards everything received so far, for connection teardown.
func (r *Request) Reset() {
	r.n = 0
	r.phase = PhaseAwaitingHeader
	r.method = MethodUnknown
	r.uri = span{}
	r.headerLen = 0
	r.contentLength = 0
	r.isJSON = false
	r.isAction = false
	r.body = nil
	r.contentType = ContentTypeHTML
}

// bodyBytes is the received body, exactly Content-Length bytes.
func (r *Request) bodyBytes() []byte {
	return r.buf[r.headerLen : r.headerLen+r.contentLength]
}

func (r *Request) uriString() string {
	return string(r.uri.of(r.buf))
}

// setBody points the response at content produced by a handler.
func (r *Request) setBody(b []byte, ct ContentType) {
	r.body = b
	r.contentType = ct
}

// respond writes status line, headers and body, then resets the request.
func (r *Request) respond(st Status) (bool, error) {
	r.status = st
	if st != StatusOK {
		r.setBody(r.errorPage(st), ContentTypeHTML)
	}

	h := r.header[:0]
	h = fmt.Appendf(h, "HTTP/1.1 %d %s\r\n", int(st), st.Reason())
	h = append(h, "Server: "...)
	h = append(h, r.serverName()...)
	h = append(h, "\r\nContent-Type: "...)
	h = append(h, r.contentType.String()...)
	h = fmt.Appendf(h, "\r\nContent-Length: %d\r\n", len(r.body))
	h = append(h, "Connection: close\r\n\r\n"...)
	r.header = h

	logging.LogHTTPResponse(r.connID, int(st), r.contentType.String(), len(r.body))

	err := r.write(h)
	if err == nil && len(r.body) > 0 {
		err = r.write(r.body)
	}

	r.Reset()
	r.phase = PhaseAnswered

	if err != nil {
		logging.Warn("response write failed", zap.Uint32("conn_id", r.connID), zap.Error(err))
		return true, fmt.Errorf("failed to write response: %w", err)
	}
	return true, nil
}

func (r *Request) write(p []byte) error {
	if r.d.deps.Transport == nil {
		return errNoTransport
	}
	return r.d.deps.Transport.Write(r.connID, p)
}

func (r *Request) serverName() string {
	if r.d.deps.Device != nil {
		if name := r.d.deps.Device.BoardName(); name != "" {
			return name
		}
	}
	return "remoteconfig"
}

// errorPage renders the generic HTML body for st into the content buffer.
func (r *Request) errorPage(st Status) []byte {
	page := fmt.Appendf(r.content[:0:len(r.content)],
		"<!DOCTYPE html>\n<html>\n<head><title>%d %s</title></head>\n<body><h1>%s</h1></body>\n</html>\n",
		int(st), st.Reason(), st.Reason())
	return page
}
