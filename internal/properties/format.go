package properties

import "sync/atomic"

// Format selects how a Builder serializes properties.
type Format uint8

const (
	// FormatFlat is the device's native key=value text format
	FormatFlat Format = iota
	// FormatJSON is a flat, single-level JSON object
	FormatJSON
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatFlat:
		return "flat"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat maps "flat"/"txt" and "json" to a Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "flat", "txt", "text":
		return FormatFlat, true
	case "json":
		return FormatJSON, true
	default:
		return FormatFlat, false
	}
}

var current atomic.Uint32

// CurrentFormat returns the process-wide output format.
func CurrentFormat() Format {
	return Format(current.Load())
}

// SetFormat replaces the process-wide output format.
func SetFormat(f Format) {
	current.Store(uint32(f))
}

// PushFormat sets f as the process-wide format and returns a function that
// restores the value seen on entry. Intended for use with defer:
//
//	defer properties.PushFormat(properties.FormatJSON)()
func PushFormat(f Format) (restore func()) {
	prev := CurrentFormat()
	SetFormat(f)
	return func() {
		SetFormat(prev)
	}
}
