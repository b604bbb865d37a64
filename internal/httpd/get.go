package httpd

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/logging"
	"github.com/vanvught/rpidmx512-sub012/internal/properties"
	"github.com/vanvught/rpidmx512-sub012/internal/routes"
)

const (
	uriJSON       = "/json"
	uriJSONPrefix = "/json/"
	uriAction     = "/json/action"

	txtSuffix     = ".txt"
	maxConfigName = 32
)

// staticPages maps the fixed UI paths to their file.
var staticPages = map[string]string{
	"/":         "index.html",
	"/dmx":      "dmx.html",
	"/rdm":      "rdm.html",
	"/showfile": "showfile.html",
	"/dsa":      "dsa.html",
	"/time":     "time.html",
	"/rtc":      "rtc.html",
}

func (r *Request) handleGet() Status {
	uri := r.uriString()

	if strings.HasPrefix(uri, uriJSONPrefix) {
		return r.getJSON(uri[len(uriJSONPrefix):])
	}
	if strings.HasSuffix(uri, txtSuffix) {
		return r.getConfig(uri[1:])
	}
	return r.getStatic(uri)
}

// getJSON dispatches a known route to its producer. Anything else is taken
// to be the name of a configuration file.
func (r *Request) getJSON(name string) Status {
	arg := ""
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name, arg = name[:i], name[i+1:]
	}

	route, ok := routes.Lookup(name)
	if !ok {
		return r.getConfig(name)
	}

	produce := r.d.deps.Producers[route]
	if produce == nil {
		logging.Debug("no producer for route", zap.String("route", route.String()))
		return StatusNotFound
	}

	n, err := produce(r.content, arg)
	if err != nil {
		return r.statusFor(err)
	}
	if n > len(r.content) {
		return StatusInternalServerError
	}
	r.setBody(r.content[:n], ContentTypeJSON)
	return StatusOK
}

// getConfig renders a configuration file as JSON, whatever the process-wide
// format is.
func (r *Request) getConfig(name string) Status {
	if !validConfigName(name) {
		return StatusBadRequest
	}
	if r.d.deps.Store == nil {
		return StatusNotFound
	}

	defer properties.PushFormat(properties.FormatJSON)()

	n, err := r.d.deps.Store.Get(name, r.content)
	if err != nil {
		return r.statusFor(err)
	}
	if n == 0 {
		return StatusNotFound
	}
	if n > len(r.content) {
		return StatusInternalServerError
	}
	r.setBody(r.content[:n], ContentTypeJSON)
	return StatusOK
}

func (r *Request) getStatic(uri string) Status {
	file, ok := staticPages[uri]
	if !ok {
		file = uri[1:]
	}
	if r.d.deps.Content == nil || file == "" {
		return StatusNotFound
	}

	data, ok := r.d.deps.Content.Lookup(file)
	if !ok {
		return StatusNotFound
	}
	r.setBody(data, contentTypeOf(file))
	return StatusOK
}

func contentTypeOf(file string) ContentType {
	switch {
	case strings.HasSuffix(file, ".css"):
		return ContentTypeCSS
	case strings.HasSuffix(file, ".js"):
		return ContentTypeJavaScript
	case strings.HasSuffix(file, ".json"):
		return ContentTypeJSON
	default:
		return ContentTypeHTML
	}
}

// validConfigName accepts "[A-Za-z0-9_-]+.txt" up to maxConfigName bytes.
func validConfigName(name string) bool {
	if len(name) <= len(txtSuffix) || len(name) > maxConfigName || !strings.HasSuffix(name, txtSuffix) {
		return false
	}
	for i := 0; i < len(name)-len(txtSuffix); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// statusFor maps a collaborator error onto a response status.
func (r *Request) statusFor(err error) Status {
	switch {
	case errors.Is(err, ErrUnknownConfig), errors.Is(err, ErrMalformed), errors.Is(err, ErrDisabled):
		logging.Warn("request rejected", zap.Uint32("conn_id", r.connID), zap.Error(err))
		return StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		logging.Error("request failed", zap.Uint32("conn_id", r.connID), zap.Error(err))
		return StatusInternalServerError
	}
}
