package config

import (
	"fmt"
	"time"
)

// Config is the daemon configuration file.
type Config struct {
	Version     int           `yaml:"version"`
	Listen      Listen        `yaml:"listen"`
	LogLevel    string        `yaml:"log_level,omitempty"`
	StoreDir    string        `yaml:"store_dir,omitempty"`   // Directory of the .txt configuration files
	SchemaFile  string        `yaml:"schema_file,omitempty"` // Empty selects the built-in schema
	Buffers     Buffers       `yaml:"buffers"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Features    Features      `yaml:"features"`
	Device      Device        `yaml:"device"`
	MDNS        MDNS          `yaml:"mdns"`
}

// Listen is the TCP address to serve on.
type Listen struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Buffers sizes the per-connection buffers of the engine.
type Buffers struct {
	Receive int `yaml:"receive"` // Request header plus body must fit
	Content int `yaml:"content"` // Largest response body
	MaxURI  int `yaml:"max_uri"`
}

// Features switches optional device functions.
type Features struct {
	Showfile bool `yaml:"showfile"`
	RDM      bool `yaml:"rdm"`
	DMX      bool `yaml:"dmx"`
}

// Device describes the board the daemon stands in for.
type Device struct {
	BoardName     string `yaml:"board_name"`
	RebootEnabled bool   `yaml:"reboot_enabled"`
	ShowfileDir   string `yaml:"showfile_dir,omitempty"`
}

// MDNS controls the service advertisement.
type MDNS struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"`
}

const (
	DefaultPort         = 8080
	DefaultBufferSize   = 4096
	DefaultMaxURI       = 128
	DefaultIdleTimeout  = 10 * time.Second
	minReceiveSize      = 256
	defaultBoardName    = "remoteconfig"
	defaultInstanceName = "remoteconfig"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: 1,
		Listen:  Listen{Port: DefaultPort},
		Buffers: Buffers{
			Receive: DefaultBufferSize,
			Content: DefaultBufferSize,
			MaxURI:  DefaultMaxURI,
		},
		IdleTimeout: DefaultIdleTimeout,
		Device:      Device{BoardName: defaultBoardName},
		MDNS:        MDNS{Enabled: true, Instance: defaultInstanceName},
	}
}

// applyDefaults fills zero values left out of a file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Listen.Port == 0 {
		c.Listen.Port = def.Listen.Port
	}
	if c.Buffers.Receive == 0 {
		c.Buffers.Receive = def.Buffers.Receive
	}
	if c.Buffers.Content == 0 {
		c.Buffers.Content = def.Buffers.Content
	}
	if c.Buffers.MaxURI == 0 {
		c.Buffers.MaxURI = def.Buffers.MaxURI
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.Device.BoardName == "" {
		c.Device.BoardName = def.Device.BoardName
	}
	if c.MDNS.Instance == "" {
		c.MDNS.Instance = def.MDNS.Instance
	}
}

// Validate checks ranges.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	}
	if c.Buffers.Receive < minReceiveSize {
		return fmt.Errorf("buffers.receive must be at least %d, got %d", minReceiveSize, c.Buffers.Receive)
	}
	if c.Buffers.Content < minReceiveSize {
		return fmt.Errorf("buffers.content must be at least %d, got %d", minReceiveSize, c.Buffers.Content)
	}
	if c.Buffers.MaxURI < 1 || c.Buffers.MaxURI >= c.Buffers.Receive {
		return fmt.Errorf("buffers.max_uri must be between 1 and buffers.receive, got %d", c.Buffers.MaxURI)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative")
	}
	return nil
}
