package httpd

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/jsonprops"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
	"github.com/vanvught/rpidmx512-sub012/internal/properties"
)

// DateLayout is the format of the date and rtc action values.
const DateLayout = "2006-01-02T15:04:05"

const (
	maxActions = 8
	maxShow    = 99
)

var emptyObject = []byte("{}")

type actionKind uint8

const (
	actionReboot actionKind = iota + 1
	actionDisplay
	actionIdentify
	actionDate
	actionRTC
	actionRDM
	actionShow
)

var actionKeys = map[string]actionKind{
	"reboot":   actionReboot,
	"display":  actionDisplay,
	"identify": actionIdentify,
	"date":     actionDate,
	"rtc":      actionRTC,
	"rdm":      actionRDM,
	"show":     actionShow,
}

func (k actionKind) String() string {
	for key, kind := range actionKeys {
		if kind == k {
			return key
		}
	}
	return "unknown"
}

// action is one validated key=value line of an action body.
type action struct {
	kind actionKind
	on   bool
	n    uint32
	t    time.Time
}

func (r *Request) handleBody() Status {
	if !r.isJSON {
		return StatusBadRequest
	}

	switch r.method {
	case MethodPost:
		if r.isAction {
			return r.runActions(false)
		}
		if r.uriString() == uriJSON {
			return r.setConfig()
		}
		return StatusBadRequest
	case MethodDelete:
		if !r.isAction {
			return StatusBadRequest
		}
		return r.runActions(true)
	default:
		return StatusMethodNotImplemented
	}
}

// setConfig hands the JSON body to the store unmodified.
func (r *Request) setConfig() Status {
	if r.d.deps.Store == nil {
		return StatusNotFound
	}

	defer properties.PushFormat(properties.FormatJSON)()

	if err := r.d.deps.Store.Set(r.bodyBytes()); err != nil {
		return r.statusFor(err)
	}
	r.setBody(emptyObject, ContentTypeJSON)
	return StatusOK
}

// runActions transcodes the body into key=value lines, validates every
// line and only then performs the side effects, reboot last.
func (r *Request) runActions(isDelete bool) Status {
	if r.d.deps.Device == nil {
		return StatusNotFound
	}

	body := r.bodyBytes()
	if len(body) > len(r.content) {
		return StatusRequestEntityTooLarge
	}
	lines := r.content[:copy(r.content, body)]

	n, err := jsonprops.ConvertJSONObject(lines)
	switch {
	case errors.Is(err, jsonprops.ErrNotJSON):
		// Already key=value lines.
		n = len(lines)
	case err != nil:
		return StatusBadRequest
	}
	lines = lines[:n]

	var (
		actions [maxActions]action
		count   int
	)
	for len(lines) > 0 {
		var line []byte
		if nl := bytes.IndexByte(lines, '\n'); nl >= 0 {
			line, lines = lines[:nl], lines[nl+1:]
		} else {
			line, lines = lines, nil
		}
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		if count == maxActions {
			return StatusBadRequest
		}

		a, status := r.parseAction(line, isDelete)
		if status != StatusOK {
			logging.Warn("invalid action",
				zap.Uint32("conn_id", r.connID),
				zap.ByteString("line", line),
				zap.Int("status", int(status)),
			)
			return status
		}
		actions[count] = a
		count++
	}
	if count == 0 {
		return StatusBadRequest
	}

	reboot := false
	for _, a := range actions[:count] {
		if a.kind == actionReboot {
			reboot = true
			continue
		}
		if err := r.perform(a, isDelete); err != nil {
			return r.statusFor(err)
		}
	}
	if reboot {
		logging.Info("reboot requested", zap.Uint32("conn_id", r.connID))
		if err := r.d.deps.Device.Reboot(); err != nil {
			return r.statusFor(err)
		}
	}

	r.setBody(emptyObject, ContentTypeJSON)
	return StatusOK
}

// parseAction validates one line against the device's capabilities so
// that a rejected body has no side effect.
func (r *Request) parseAction(line []byte, isDelete bool) (action, Status) {
	eq := bytes.IndexByte(line, '=')
	if eq <= 0 {
		return action{}, StatusBadRequest
	}
	key, value := string(line[:eq]), string(line[eq+1:])

	kind, ok := actionKeys[key]
	if !ok {
		return action{}, StatusBadRequest
	}
	if isDelete && kind != actionShow {
		return action{}, StatusBadRequest
	}

	dev := r.d.deps.Device
	a := action{kind: kind}
	switch kind {
	case actionReboot:
		if value != "1" || !dev.RebootEnabled() {
			return action{}, StatusBadRequest
		}
		return a, StatusOK
	case actionDisplay, actionIdentify, actionRDM:
		switch value {
		case "0":
			a.on = false
		case "1":
			a.on = true
		default:
			return action{}, StatusBadRequest
		}
		if kind == actionRDM && !dev.RDMEnabled() {
			return action{}, StatusBadRequest
		}
		return a, StatusOK
	case actionDate, actionRTC:
		t, err := time.ParseInLocation(DateLayout, value, time.Local)
		if err != nil {
			return action{}, StatusBadRequest
		}
		a.t = t
		return a, StatusOK
	case actionShow:
		if !r.d.opts.Showfile {
			return action{}, StatusBadRequest
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n > maxShow {
			return action{}, StatusBadRequest
		}
		a.n = uint32(n)
		if !dev.ShowExists(a.n) {
			return action{}, StatusNotFound
		}
		return a, StatusOK
	}
	return action{}, StatusBadRequest
}

func (r *Request) perform(a action, isDelete bool) error {
	dev := r.d.deps.Device

	logging.Info("performing action",
		zap.Uint32("conn_id", r.connID),
		zap.Stringer("action", a.kind),
		zap.Bool("delete", isDelete),
	)

	switch a.kind {
	case actionDisplay:
		return dev.SetDisplay(a.on)
	case actionIdentify:
		return dev.Identify(a.on)
	case actionDate:
		return dev.SetDate(a.t)
	case actionRTC:
		return dev.SetRTC(a.t)
	case actionRDM:
		return dev.EnableRDM(a.on)
	case actionShow:
		if isDelete {
			return dev.DeleteShow(a.n)
		}
		return dev.SelectShow(a.n)
	}
	return nil
}
