package device

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
)

// MaxShow is the highest show number.
const MaxShow = 99

// Features switches optional parts of the device.
type Features struct {
	Showfile bool
	RDM      bool
	DMX      bool
}

// Options configures a Device.
type Options struct {
	BoardName     string
	RebootEnabled bool
	Features      Features

	// ShowfileDir holds showNN.txt files.
	ShowfileDir string
	// StorageDir is listed by the storage/directory route.
	StorageDir string

	Version string
	Commit  string

	// OnReboot is called after a reboot was accepted. The daemon uses it to
	// restart itself.
	OnReboot func()

	// Clock and Interfaces replace time.Now and net.Interfaces.
	Clock      func() time.Time
	Interfaces func() ([]net.Interface, error)
}

// State is a snapshot of the actuator state.
type State struct {
	DisplayOn   bool
	Identifying bool
	RDMEnabled  bool
	Show        uint32
	ShowLoaded  bool
	Reboots     int
}

// Device is the host rendition of the board: actuators keep their state in
// memory, the clock and RTC are offsets from the host clock.
type Device struct {
	opts  Options
	start time.Time

	mu          sync.Mutex
	state       State
	clockOffset time.Duration
	rtcOffset   time.Duration
}

// New returns a Device with the display on.
func New(opts Options) *Device {
	if opts.BoardName == "" {
		opts.BoardName = "remoteconfig"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Interfaces == nil {
		opts.Interfaces = net.Interfaces
	}
	return &Device{
		opts:  opts,
		start: opts.Clock(),
		state: State{DisplayOn: true},
	}
}

// BoardName names the board in the Server header.
func (d *Device) BoardName() string {
	return d.opts.BoardName
}

// RebootEnabled reports whether the reboot action is allowed.
func (d *Device) RebootEnabled() bool {
	return d.opts.RebootEnabled
}

// RDMEnabled reports whether the board has RDM, so the rdm action is allowed.
func (d *Device) RDMEnabled() bool {
	return d.opts.Features.RDM
}

// ShowExists reports whether showNN.txt is present in the showfile directory.
func (d *Device) ShowExists(show uint32) bool {
	path, err := d.showPath(show)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Showfile reports whether the showfile feature is on.
func (d *Device) Showfile() bool {
	return d.opts.Features.Showfile
}

// State returns a snapshot of the actuator state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Device) Reboot() error {
	if !d.opts.RebootEnabled {
		return fmt.Errorf("reboot: %w", httpd.ErrDisabled)
	}
	d.mu.Lock()
	d.state.Reboots++
	d.mu.Unlock()

	logging.Warn("reboot requested", zap.String("board", d.opts.BoardName))
	if d.opts.OnReboot != nil {
		d.opts.OnReboot()
	}
	return nil
}

func (d *Device) SetDisplay(on bool) error {
	d.mu.Lock()
	d.state.DisplayOn = on
	d.mu.Unlock()
	logging.Info("display", zap.Bool("on", on))
	return nil
}

func (d *Device) Identify(on bool) error {
	d.mu.Lock()
	d.state.Identifying = on
	d.mu.Unlock()
	logging.Info("identify", zap.Bool("on", on))
	return nil
}

// SetDate moves the device clock. The host clock is left alone.
func (d *Device) SetDate(t time.Time) error {
	d.mu.Lock()
	d.clockOffset = t.Sub(d.opts.Clock())
	d.mu.Unlock()
	logging.Info("date set", zap.Time("time", t))
	return nil
}

func (d *Device) SetRTC(t time.Time) error {
	d.mu.Lock()
	d.rtcOffset = t.Sub(d.opts.Clock())
	d.mu.Unlock()
	logging.Info("rtc set", zap.Time("time", t))
	return nil
}

// Now is the device clock.
func (d *Device) Now() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.Clock().Add(d.clockOffset)
}

// RTC is the real-time clock reading.
func (d *Device) RTC() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.Clock().Add(d.rtcOffset)
}

// Uptime is the time since New.
func (d *Device) Uptime() time.Duration {
	return d.opts.Clock().Sub(d.start)
}

func (d *Device) EnableRDM(on bool) error {
	if !d.opts.Features.RDM {
		return fmt.Errorf("rdm: %w", httpd.ErrDisabled)
	}
	d.mu.Lock()
	d.state.RDMEnabled = on
	d.mu.Unlock()
	logging.Info("rdm", zap.Bool("enabled", on))
	return nil
}

// SelectShow loads showNN.txt. The file must exist.
func (d *Device) SelectShow(show uint32) error {
	path, err := d.showPath(show)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("show %d: %w", show, httpd.ErrNotFound)
		}
		return fmt.Errorf("show %d: %w", show, err)
	}

	d.mu.Lock()
	d.state.Show = show
	d.state.ShowLoaded = true
	d.mu.Unlock()
	logging.Info("show selected", zap.Uint32("show", show))
	return nil
}

// DeleteShow removes showNN.txt and unloads it if it was selected.
func (d *Device) DeleteShow(show uint32) error {
	path, err := d.showPath(show)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("show %d: %w", show, httpd.ErrNotFound)
		}
		return fmt.Errorf("failed to delete show %d: %w", show, err)
	}

	d.mu.Lock()
	if d.state.ShowLoaded && d.state.Show == show {
		d.state.ShowLoaded = false
	}
	d.mu.Unlock()
	logging.Info("show deleted", zap.Uint32("show", show))
	return nil
}

func (d *Device) showPath(show uint32) (string, error) {
	if !d.opts.Features.Showfile || d.opts.ShowfileDir == "" {
		return "", fmt.Errorf("showfile: %w", httpd.ErrDisabled)
	}
	if show > MaxShow {
		return "", fmt.Errorf("show %d: %w", show, httpd.ErrMalformed)
	}
	return filepath.Join(d.opts.ShowfileDir, ShowFileName(show)), nil
}

// ShowFileName returns the file name of show n.
func ShowFileName(n uint32) string {
	return fmt.Sprintf("show%02d.txt", n)
}

// parseShowFileName is the inverse of ShowFileName.
func parseShowFileName(name string) (uint32, bool) {
	var n uint32
	if len(name) != len("show00.txt") || name[:4] != "show" || name[6:] != ".txt" {
		return 0, false
	}
	for _, c := range name[4:6] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint32(c-'0')
	}
	return n, true
}
