package httpd

import (
	"bytes"
)

// span addresses bytes of the receive buffer. The tokenizer produces spans
// and never writes to the buffer.
type span struct {
	off, n int
}

func (s span) of(buf []byte) []byte {
	return buf[s.off : s.off+s.n]
}

const (
	httpVersion    = "HTTP/1.1"
	httpPrefix     = "HTTP/"
	mimeJSON       = "application/json"
	maxContentSize = 1 << 30
)

// parseHeader tokenizes r.buf[:r.n] line by line. It returns done=false
// while the blank line that ends the header has not arrived yet. Every call
// starts over from the first byte, so header scratch state is reset here.
func (r *Request) parseHeader() (st Status, done bool) {
	r.method = MethodUnknown
	r.uri = span{}
	r.isJSON = false
	r.contentLength = 0
	r.headerLen = 0

	data := r.buf[:r.n]
	pos := 0
	for line := 0; ; line++ {
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			return StatusOK, false
		}
		end := pos + nl
		next := end + 1
		if end > pos && data[end-1] == '\r' {
			end--
		}

		switch {
		case line == 0:
			if st := r.parseRequestLine(pos, end); st != StatusOK {
				return st, true
			}
		case end == pos:
			r.headerLen = next
			return StatusOK, true
		default:
			if st := r.parseHeaderLine(data[pos:end]); st != StatusOK {
				return st, true
			}
		}

		pos = next
	}
}

// parseRequestLine handles "METHOD SP uri SP HTTP/1.1" in r.buf[from:to].
func (r *Request) parseRequestLine(from, to int) Status {
	line := r.buf[from:to]

	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return StatusBadRequest
	}
	r.method = parseMethod(line[:sp])
	if r.method == MethodUnknown || (r.method == MethodDelete && !r.d.opts.Showfile) {
		return StatusMethodNotImplemented
	}

	rest := line[sp+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return StatusBadRequest
	}
	uri := rest[:sp2]
	version := rest[sp2+1:]

	if uri[0] != '/' {
		return StatusBadRequest
	}
	if len(uri) > r.d.opts.MaxURILength {
		return StatusRequestURITooLong
	}

	if string(version) != httpVersion {
		if bytes.HasPrefix(version, []byte(httpPrefix)) {
			return StatusVersionNotSupported
		}
		return StatusBadRequest
	}

	r.uri = span{off: from + sp + 1, n: len(uri)}
	return StatusOK
}

// parseHeaderLine picks out Content-Type and Content-Length.
func (r *Request) parseHeaderLine(line []byte) Status {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return StatusBadRequest
	}
	name := line[:colon]
	value := bytes.TrimSpace(line[colon+1:])

	switch {
	case bytes.EqualFold(name, []byte("Content-Type")):
		r.isJSON = isJSONMediaType(value)
	case bytes.EqualFold(name, []byte("Content-Length")):
		n, ok := parseContentLength(value)
		if !ok {
			return StatusBadRequest
		}
		if n > len(r.buf) {
			return StatusRequestEntityTooLarge
		}
		r.contentLength = n
	}

	return StatusOK
}

func isJSONMediaType(v []byte) bool {
	if len(v) < len(mimeJSON) || !bytes.EqualFold(v[:len(mimeJSON)], []byte(mimeJSON)) {
		return false
	}
	rest := bytes.TrimSpace(v[len(mimeJSON):])
	return len(rest) == 0 || rest[0] == ';'
}

// parseContentLength accepts decimal digits only. Values beyond
// maxContentSize saturate at maxContentSize, which fits a 32-bit int, so the
// caller rejects them as too large.
func parseContentLength(v []byte) (int, bool) {
	if len(v) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int(c - '0')
		if n > (maxContentSize-d)/10 {
			n = maxContentSize
			continue
		}
		n = n*10 + d
	}
	return n, true
}
