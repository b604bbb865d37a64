// Package config loads and saves the remoteconfigd configuration file.
//
// # Configuration File Location
//
// Unless --config names another file, the daemon reads:
//   - Linux: $XDG_CONFIG_HOME/remoteconfig/config.yaml or $HOME/.config/remoteconfig/config.yaml
//   - macOS: $HOME/.config/remoteconfig/config.yaml
//   - Windows: %LOCALAPPDATA%\remoteconfig\config.yaml
//
// A missing file is not an error; Default is used.
//
// # Example
//
//	version: 1
//	listen:
//	  host: ""
//	  port: 8080
//	log_level: info
//	store_dir: store
//	buffers:
//	  receive: 4096
//	  content: 4096
//	  max_uri: 128
//	idle_timeout: 10s
//	features:
//	  showfile: true
//	  rdm: false
//	  dmx: true
//	device:
//	  board_name: Orange Pi Zero
//	  reboot_enabled: false
//	  showfile_dir: shows
//	mdns:
//	  enabled: true
//	  instance: remoteconfig
//
// Relative directories are taken relative to the configuration file.
//
// # Thread Safety
//
// Save is serialised by a mutex and writes through a temporary file and a
// rename, so a crash never leaves a half-written file behind.
package config
