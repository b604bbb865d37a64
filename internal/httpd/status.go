package httpd

import "strconv"

// Status is the HTTP status of a response.
type Status uint16

const (
	StatusOK                    Status = 200
	StatusBadRequest            Status = 400
	StatusNotFound              Status = 404
	StatusRequestTimeout        Status = 408
	StatusRequestEntityTooLarge Status = 413
	StatusRequestURITooLong     Status = 414
	StatusInternalServerError   Status = 500
	StatusMethodNotImplemented  Status = 501
	StatusVersionNotSupported   Status = 505
	StatusUnknownError          Status = 520
)

// Reason returns the reason phrase for the status line
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusRequestTimeout:
		return "Request Timeout"
	case StatusRequestEntityTooLarge:
		return "Request Entity Too Large"
	case StatusRequestURITooLong:
		return "Request-URI Too Long"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusMethodNotImplemented:
		return "Method Not Implemented"
	case StatusVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return "Unknown Error"
	}
}

// String returns "code reason"
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}

// Method is the request method. Only GET, POST and DELETE are understood.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

func parseMethod(b []byte) Method {
	switch string(b) {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "DELETE":
		return MethodDelete
	default:
		return MethodUnknown
	}
}

// ContentType tags the response body.
type ContentType uint8

const (
	ContentTypeHTML ContentType = iota
	ContentTypeCSS
	ContentTypeJavaScript
	ContentTypeJSON
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeCSS:
		return "text/css"
	case ContentTypeJavaScript:
		return "text/javascript"
	case ContentTypeJSON:
		return "application/json"
	default:
		return "text/html"
	}
}

// Phase is where a Request is in its lifecycle.
type Phase uint8

const (
	PhaseAwaitingHeader Phase = iota
	PhaseAwaitingBody
	PhaseComplete
	PhaseAnswered
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingHeader:
		return "awaiting-header"
	case PhaseAwaitingBody:
		return "awaiting-body"
	case PhaseComplete:
		return "complete"
	case PhaseAnswered:
		return "answered"
	default:
		return "invalid"
	}
}
