package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/discovery"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
)

// MDNSConfig controls the service advertisement.
type MDNSConfig struct {
	Enabled  bool
	Instance string
	// Text is appended to the TXT records after the discovery marker.
	Text []string
}

type mdnsRegistration struct {
	server *zeroconf.Server
}

func (s *Server) registerMDNS(port int) error {
	cfg := s.config.MDNS
	if !cfg.Enabled || port == 0 {
		return nil
	}
	instance := cfg.Instance
	if instance == "" {
		instance = "remoteconfig"
	}

	txt := append([]string{discovery.TxtMarker, "path=/json/version"}, cfg.Text...)
	srv, err := zeroconf.Register(instance, discovery.ServiceType, discovery.ServiceDomain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mu.Lock()
	s.mdns.server = srv
	s.mu.Unlock()

	logging.Info("Advertising via mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
	)
	return nil
}

func (s *Server) shutdownMDNS() {
	s.mu.Lock()
	srv := s.mdns.server
	s.mdns.server = nil
	s.mu.Unlock()

	if srv != nil {
		srv.Shutdown()
	}
}
