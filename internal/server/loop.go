package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
)

type eventKind uint8

const (
	eventOpen eventKind = iota
	eventData
	eventExpire
	eventClose
)

// event is a connection reader's message to the loop. data is borrowed
// until a value is sent on reply.
type event struct {
	kind   eventKind
	connID uint32
	data   []byte
	reply  chan<- bool
}

// loop owns every httpd.Request. A true reply tells the reader to close the
// connection.
func (s *Server) loop(ctx context.Context) {
	requests := make(map[uint32]*httpd.Request)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			switch ev.kind {
			case eventOpen:
				requests[ev.connID] = s.daemon.NewRequest(ev.connID)

			case eventData:
				req, ok := requests[ev.connID]
				if !ok {
					ev.reply <- true
					continue
				}
				answered, err := req.HandleRequest(ev.data)
				if err != nil {
					logging.Warn("request failed", zap.Uint32("conn_id", ev.connID), zap.Error(err))
				}
				ev.reply <- answered || err != nil

			case eventExpire:
				answered := false
				if req, ok := requests[ev.connID]; ok {
					var err error
					answered, err = req.Expire()
					if err != nil {
						logging.Debug("timeout response not delivered", zap.Uint32("conn_id", ev.connID), zap.Error(err))
					}
				}
				ev.reply <- answered

			case eventClose:
				if req, ok := requests[ev.connID]; ok {
					if req.Pending() {
						logging.Debug("connection closed mid-request",
							zap.Uint32("conn_id", ev.connID),
							zap.Stringer("phase", req.Phase()),
						)
					}
					req.Reset()
					delete(requests, ev.connID)
				}
			}
		}
	}
}
