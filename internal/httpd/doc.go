// Package httpd is the HTTP configuration engine: a small HTTP/1.1 request
// state machine that reads and writes the device's configuration files and
// triggers device actions.
//
// It is written for a network layer that delivers bytes in arbitrary chunks.
// Each connection owns one Request; the network layer calls
// Request.HandleRequest with every chunk. The request is accumulated in a
// fixed receive buffer and the call returns as soon as more bytes are needed,
// so a request split over any number of reads produces exactly the same
// response as one delivered whole.
//
// # Phases
//
//	awaiting-header ──blank line──▶ GET ──────────────▶ answered
//	       │                         POST/DELETE
//	       │                           │ body short ─▶ awaiting-body ─┐
//	       │                           ▼                             │
//	       └──syntax/size error──▶ answered ◀──── body complete ◀────┘
//
// Answered is transient; the next chunk starts a new request.
//
// # Routes
//
//	GET    /json/<route>[?arg]   read-only JSON producers (see package routes)
//	GET    /json/<file>.txt      configuration file rendered as JSON
//	GET    /<file>.txt           same
//	GET    / /dmx /rdm /showfile /dsa /time /rtc and /<file>   static UI
//	POST   /json                 set a configuration file (JSON body)
//	POST   /json/action          reboot, display, identify, date, rtc, rdm, show
//	DELETE /json/action          show=N, only with the showfile feature
//
// Every response carries Connection: close. Errors are answered with a
// generated HTML page naming the status.
package httpd
