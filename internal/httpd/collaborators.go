package httpd

import (
	"errors"
	"time"

	"github.com/vanvught/rpidmx512-sub012/internal/routes"
)

// Errors collaborators return to select a response status. Wrap them with
// fmt.Errorf("%w") to add context.
var (
	// ErrUnknownConfig: the named configuration file does not exist (400).
	ErrUnknownConfig = errors.New("unknown configuration")
	// ErrMalformed: a request body or name could not be understood (400).
	ErrMalformed = errors.New("malformed request data")
	// ErrDisabled: the feature or action is switched off on this device (400).
	ErrDisabled = errors.New("disabled")
	// ErrNotFound: the resource is valid but has nothing to show (404).
	ErrNotFound = errors.New("not found")
	// ErrNoSpace: output did not fit the content buffer (500).
	ErrNoSpace = errors.New("content buffer too small")
)

// Transport writes raw response bytes to the connection identified by connID.
type Transport interface {
	Write(connID uint32, p []byte) error
}

// ConfigStore reads and writes persisted configuration files. Get renders
// the named file into buf in the process-wide properties format and returns
// the number of bytes used. Set takes a JSON body as posted by the web UI.
type ConfigStore interface {
	Get(name string, buf []byte) (int, error)
	Set(body []byte) error
}

// Device is the set of side-effecting actions reachable through
// /json/action, plus the identity used in the Server header. RebootEnabled,
// RDMEnabled and ShowExists are queried while a body is validated, before
// any action runs.
type Device interface {
	BoardName() string
	RebootEnabled() bool
	RDMEnabled() bool
	ShowExists(show uint32) bool
	Reboot() error
	SetDisplay(on bool) error
	Identify(on bool) error
	SetDate(t time.Time) error
	SetRTC(t time.Time) error
	EnableRDM(on bool) error
	SelectShow(show uint32) error
	DeleteShow(show uint32) error
}

// Producer renders a read-only JSON document into buf and returns its
// length. arg is whatever followed '?' in the request URI.
type Producer func(buf []byte, arg string) (int, error)

// Producers maps a /json/ route to its producer. A route without a producer
// answers 404; that is how a feature the device does not have looks.
type Producers map[routes.Route]Producer

// Content serves compiled-in static files by name.
type Content interface {
	Lookup(file string) ([]byte, bool)
}

// Options sizes the fixed buffers and switches optional features.
type Options struct {
	// ReceiveSize is the capacity of the per-connection receive buffer;
	// header plus body must fit.
	ReceiveSize int
	// ContentSize is the capacity of the response content buffer.
	ContentSize int
	// MaxURILength bounds the request URI.
	MaxURILength int
	// Showfile enables the show action and DELETE.
	Showfile bool
}

// DefaultOptions returns the sizes used on the device.
func DefaultOptions() Options {
	return Options{
		ReceiveSize:  4096,
		ContentSize:  4096,
		MaxURILength: 128,
	}
}

// Deps bundles the collaborators a Daemon drives.
type Deps struct {
	Transport Transport
	Store     ConfigStore
	Device    Device
	Producers Producers
	Content   Content
}
