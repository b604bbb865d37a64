// Remoteconfigd serves the remote configuration protocol of a lighting node.
//
// It answers GET, POST and DELETE requests on /json/... with the node's
// configuration files, status documents and actions, and serves the
// embedded web UI. Nodes are advertised by mDNS so that 'remoteconfig scan'
// finds them.
//
// Usage:
//
//	remoteconfigd serve [flags]
//
// See 'remoteconfigd serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/config"
	"github.com/vanvught/rpidmx512-sub012/internal/configstore"
	"github.com/vanvught/rpidmx512-sub012/internal/content"
	"github.com/vanvught/rpidmx512-sub012/internal/device"
	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
	"github.com/vanvught/rpidmx512-sub012/internal/server"
	"github.com/vanvught/rpidmx512-sub012/internal/version"
)

// rebootDelay lets the reboot response reach the client before the
// listener closes.
const rebootDelay = 500 * time.Millisecond

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remoteconfigd",
	Short: "Remote configuration server",
	Long: `A remote configuration server for DMX/RDM lighting nodes.

Serves the node's configuration files as JSON, accepts new values and
actions, and serves the embedded web UI. Use 'remoteconfig' to talk to it
from the command line.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	configPath string
	host       string
	port       int
	logLevel   string
	storeDir   string
	noMDNS     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configuration server",
	Long: `Start the remote configuration server.

Settings are read from the configuration file (see 'remoteconfigd init-config')
and may be overridden by flags. A missing file means defaults.

An accepted reboot action stops the server with exit status 0 after the
response is sent; run it under a supervisor that restarts it.`,
	Example: `  # Serve with the defaults on port 8080
  remoteconfigd serve

  # Serve on port 80 with debug logging
  remoteconfigd serve --port 80 --log-level debug

  # Use another configuration and store directory
  remoteconfigd serve --config ./node.yaml --store-dir ./store`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (default: OS config directory)")

	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&storeDir, "store-dir", "", "Directory of the configuration .txt files")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not advertise via mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Listen.Host = host
	}
	if flags.Changed("port") {
		cfg.Listen.Port = port
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("store-dir") {
		cfg.StoreDir = storeDir
	}
	if noMDNS {
		cfg.MDNS.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	schema, err := configstore.LoadSchema(cfg.SchemaFile)
	if err != nil {
		return err
	}
	store, err := configstore.New(cfg.StoreDir, schema)
	if err != nil {
		return err
	}

	files, err := content.Load()
	if err != nil {
		return err
	}

	if cfg.Features.Showfile {
		if err := os.MkdirAll(cfg.Device.ShowfileDir, 0755); err != nil {
			return fmt.Errorf("failed to create showfile directory: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	dev := device.New(device.Options{
		BoardName:     cfg.Device.BoardName,
		RebootEnabled: cfg.Device.RebootEnabled,
		Features: device.Features{
			Showfile: cfg.Features.Showfile,
			RDM:      cfg.Features.RDM,
			DMX:      cfg.Features.DMX,
		},
		ShowfileDir: cfg.Device.ShowfileDir,
		StorageDir:  cfg.StoreDir,
		Version:     version.Version,
		Commit:      version.Commit,
		OnReboot: func() {
			logging.Info("Reboot accepted, stopping server", zap.Duration("delay", rebootDelay))
			time.AfterFunc(rebootDelay, cancel)
		},
	})

	srv := server.New(server.Config{
		Host:        cfg.Listen.Host,
		Port:        cfg.Listen.Port,
		IdleTimeout: cfg.IdleTimeout,
		MDNS: server.MDNSConfig{
			Enabled:  cfg.MDNS.Enabled,
			Instance: cfg.MDNS.Instance,
			Text: []string{
				"board=" + cfg.Device.BoardName,
				"version=" + version.Version,
			},
		},
	}, httpd.Deps{
		Store:     store,
		Device:    dev,
		Producers: dev.Producers(store),
		Content:   files,
	}, httpd.Options{
		ReceiveSize:  cfg.Buffers.Receive,
		ContentSize:  cfg.Buffers.Content,
		MaxURILength: cfg.Buffers.MaxURI,
		Showfile:     cfg.Features.Showfile,
	})

	logging.Info("Configuration loaded",
		zap.String("store_dir", cfg.StoreDir),
		zap.Strings("files", store.List()),
		zap.String("board", cfg.Device.BoardName),
	)

	return srv.Start(ctx)
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a configuration file with the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("remoteconfigd %s\n", version.Full())
	},
}
