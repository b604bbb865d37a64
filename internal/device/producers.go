package device

import (
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/routes"
)

// ConfigLister names the configuration files, for the directory route.
type ConfigLister interface {
	List() []string
}

const (
	dmxPorts     = 4
	dmxSlots     = 512
	dmxRefreshHz = 40
)

var pixelTypes = []struct {
	name, colours string
}{
	{"ws2801", "RGB"},
	{"ws2811", "RGB"},
	{"ws2812", "GRB"},
	{"ws2812b", "GRB"},
	{"ws2813", "GRB"},
	{"ws2815", "GRB"},
	{"sk6812", "GRB"},
	{"sk6812w", "GRBW"},
	{"apa102", "BGR"},
	{"ucs1903", "RGB"},
	{"tm1804", "RGB"},
	{"p9813", "BGR"},
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Producers returns the read-only /json/ routes this device serves. DMX,
// RDM, pixel and showfile routes are present only with their feature.
func (d *Device) Producers(configs ConfigLister) httpd.Producers {
	p := httpd.Producers{
		routes.List:             d.produceList,
		routes.Version:          d.produceVersion,
		routes.Uptime:           d.produceUptime,
		routes.Display:          d.produceDisplay,
		routes.PhyStatus:        d.producePhyStatus,
		routes.RTC:              d.produceRTC,
		routes.StorageDirectory: d.produceStorageDirectory,
	}
	if configs != nil {
		p[routes.Directory] = func(buf []byte, _ string) (int, error) {
			return render(buf, func(s *jsoniter.Stream) {
				s.WriteObjectStart()
				s.WriteObjectField("files")
				writeStrings(s, configs.List())
				s.WriteObjectEnd()
			})
		}
	}
	if d.opts.Features.DMX {
		p[routes.DMXPorts] = d.produceDMXPorts
		p[routes.DMXStatus] = d.produceDMXStatus
		p[routes.PixelType] = producePixelType
	}
	if d.opts.Features.RDM {
		p[routes.RDMPorts] = d.produceRDMPorts
		p[routes.RDMQueue] = d.produceRDMQueue
		p[routes.RDMTOD] = d.produceRDMTOD
	}
	if d.opts.Features.Showfile {
		p[routes.ShowfileStatus] = d.produceShowfileStatus
		p[routes.ShowfileDirectory] = d.produceShowfileDirectory
	}
	return p
}

// render runs fn against a pooled stream and copies the result into buf.
func render(buf []byte, fn func(s *jsoniter.Stream)) (int, error) {
	s := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(s)

	fn(s)
	if s.Error != nil {
		return 0, fmt.Errorf("failed to render json: %w", s.Error)
	}
	out := s.Buffer()
	if len(out) > len(buf) {
		return 0, fmt.Errorf("%w: %d bytes needed", httpd.ErrNoSpace, len(out))
	}
	return copy(buf, out), nil
}

func writeStrings(s *jsoniter.Stream, values []string) {
	s.WriteArrayStart()
	for i, v := range values {
		if i > 0 {
			s.WriteMore()
		}
		s.WriteString(v)
	}
	s.WriteArrayEnd()
}

func (d *Device) produceList(buf []byte, _ string) (int, error) {
	output := "none"
	ports := 0
	if d.opts.Features.DMX {
		output, ports = "dmx", dmxPorts
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("list")
		s.WriteObjectStart()
		s.WriteObjectField("name")
		s.WriteString(d.opts.BoardName)
		s.WriteMore()
		s.WriteObjectField("node")
		s.WriteObjectStart()
		s.WriteObjectField("type")
		s.WriteString("remoteconfig")
		s.WriteMore()
		s.WriteObjectField("output")
		s.WriteString(output)
		s.WriteMore()
		s.WriteObjectField("ports")
		s.WriteInt(ports)
		s.WriteObjectEnd()
		s.WriteObjectEnd()
		s.WriteObjectEnd()
	})
}

func (d *Device) produceVersion(buf []byte, _ string) (int, error) {
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("version")
		s.WriteString(d.opts.Version)
		s.WriteMore()
		s.WriteObjectField("commit")
		s.WriteString(d.opts.Commit)
		s.WriteMore()
		s.WriteObjectField("board")
		s.WriteString(d.opts.BoardName)
		s.WriteMore()
		s.WriteObjectField("go")
		s.WriteString(runtime.Version())
		s.WriteObjectEnd()
	})
}

func (d *Device) produceUptime(buf []byte, _ string) (int, error) {
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("uptime")
		s.WriteUint64(uint64(d.Uptime().Seconds()))
		s.WriteObjectEnd()
	})
}

func (d *Device) produceDisplay(buf []byte, _ string) (int, error) {
	st := d.State()
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("on")
		s.WriteBool(st.DisplayOn)
		s.WriteMore()
		s.WriteObjectField("identify")
		s.WriteBool(st.Identifying)
		s.WriteObjectEnd()
	})
}

func (d *Device) producePhyStatus(buf []byte, _ string) (int, error) {
	ifaces, err := d.opts.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("failed to list interfaces: %w", err)
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("interfaces")
		s.WriteArrayStart()
		for i, iface := range ifaces {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteObjectStart()
			s.WriteObjectField("name")
			s.WriteString(iface.Name)
			s.WriteMore()
			s.WriteObjectField("mac")
			s.WriteString(iface.HardwareAddr.String())
			s.WriteMore()
			s.WriteObjectField("mtu")
			s.WriteInt(iface.MTU)
			s.WriteMore()
			s.WriteObjectField("up")
			s.WriteBool(iface.Flags&net.FlagUp != 0)
			s.WriteObjectEnd()
		}
		s.WriteArrayEnd()
		s.WriteObjectEnd()
	})
}

func (d *Device) produceRTC(buf []byte, _ string) (int, error) {
	t := d.RTC()
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("rtc")
		s.WriteString(t.Format(httpd.DateLayout))
		s.WriteObjectEnd()
	})
}

func (d *Device) produceStorageDirectory(buf []byte, _ string) (int, error) {
	if d.opts.StorageDir == "" {
		return 0, fmt.Errorf("storage: %w", httpd.ErrNotFound)
	}
	entries, err := os.ReadDir(d.opts.StorageDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read storage directory: %w", err)
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("files")
		s.WriteArrayStart()
		first := true
		for _, e := range entries {
			if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if !first {
				s.WriteMore()
			}
			first = false
			s.WriteObjectStart()
			s.WriteObjectField("name")
			s.WriteString(e.Name())
			s.WriteMore()
			s.WriteObjectField("size")
			s.WriteInt64(info.Size())
			s.WriteObjectEnd()
		}
		s.WriteArrayEnd()
		s.WriteObjectEnd()
	})
}

// portArg reads "N" or "port=N". An empty arg is port 0.
func portArg(arg string, ports int) (int, error) {
	arg = strings.TrimPrefix(arg, "port=")
	if arg == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: port %q", httpd.ErrMalformed, arg)
	}
	if n >= ports {
		return 0, fmt.Errorf("port %d: %w", n, httpd.ErrNotFound)
	}
	return n, nil
}

func (d *Device) produceDMXPorts(buf []byte, _ string) (int, error) {
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("ports")
		s.WriteArrayStart()
		for i := 0; i < dmxPorts; i++ {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteObjectStart()
			s.WriteObjectField("port")
			s.WriteInt(i)
			s.WriteMore()
			s.WriteObjectField("direction")
			s.WriteString("output")
			s.WriteMore()
			s.WriteObjectField("universe")
			s.WriteInt(i + 1)
			s.WriteObjectEnd()
		}
		s.WriteArrayEnd()
		s.WriteObjectEnd()
	})
}

func (d *Device) produceDMXStatus(buf []byte, arg string) (int, error) {
	port, err := portArg(arg, dmxPorts)
	if err != nil {
		return 0, err
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("port")
		s.WriteInt(port)
		s.WriteMore()
		s.WriteObjectField("direction")
		s.WriteString("output")
		s.WriteMore()
		s.WriteObjectField("slots")
		s.WriteInt(dmxSlots)
		s.WriteMore()
		s.WriteObjectField("refresh_rate")
		s.WriteInt(dmxRefreshHz)
		s.WriteObjectEnd()
	})
}

func producePixelType(buf []byte, arg string) (int, error) {
	if arg == "" {
		names := make([]string, len(pixelTypes))
		for i, pt := range pixelTypes {
			names[i] = pt.name
		}
		return render(buf, func(s *jsoniter.Stream) {
			s.WriteObjectStart()
			s.WriteObjectField("types")
			writeStrings(s, names)
			s.WriteObjectEnd()
		})
	}

	for i, pt := range pixelTypes {
		if strings.EqualFold(pt.name, arg) {
			return render(buf, func(s *jsoniter.Stream) {
				s.WriteObjectStart()
				s.WriteObjectField("type")
				s.WriteString(pt.name)
				s.WriteMore()
				s.WriteObjectField("index")
				s.WriteInt(i)
				s.WriteMore()
				s.WriteObjectField("colours")
				s.WriteString(pt.colours)
				s.WriteObjectEnd()
			})
		}
	}
	return 0, fmt.Errorf("pixel type %q: %w", arg, httpd.ErrNotFound)
}

func (d *Device) produceRDMPorts(buf []byte, _ string) (int, error) {
	enabled := d.State().RDMEnabled
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("enabled")
		s.WriteBool(enabled)
		s.WriteMore()
		s.WriteObjectField("ports")
		s.WriteArrayStart()
		for i := 0; i < dmxPorts; i++ {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteInt(i)
		}
		s.WriteArrayEnd()
		s.WriteObjectEnd()
	})
}

func (d *Device) produceRDMQueue(buf []byte, _ string) (int, error) {
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("queue")
		s.WriteEmptyArray()
		s.WriteObjectEnd()
	})
}

// produceRDMTOD reports the table of devices of a port. No responders are
// attached on the host.
func (d *Device) produceRDMTOD(buf []byte, arg string) (int, error) {
	port, err := portArg(arg, dmxPorts)
	if err != nil {
		return 0, err
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("port")
		s.WriteInt(port)
		s.WriteMore()
		s.WriteObjectField("uids")
		s.WriteEmptyArray()
		s.WriteObjectEnd()
	})
}

func (d *Device) produceShowfileStatus(buf []byte, _ string) (int, error) {
	st := d.State()
	status := "idle"
	if st.ShowLoaded {
		status = "loaded"
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("show")
		s.WriteUint32(st.Show)
		s.WriteMore()
		s.WriteObjectField("status")
		s.WriteString(status)
		s.WriteObjectEnd()
	})
}

func (d *Device) produceShowfileDirectory(buf []byte, _ string) (int, error) {
	shows, err := d.Shows()
	if err != nil {
		return 0, err
	}
	return render(buf, func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		s.WriteObjectField("shows")
		s.WriteArrayStart()
		for i, n := range shows {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteUint32(n)
		}
		s.WriteArrayEnd()
		s.WriteObjectEnd()
	})
}

// Shows returns the numbers of the show files present, ascending.
func (d *Device) Shows() ([]uint32, error) {
	if d.opts.ShowfileDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(d.opts.ShowfileDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read showfile directory: %w", err)
	}
	var shows []uint32
	for _, e := range entries {
		if n, ok := parseShowFileName(e.Name()); ok && !e.IsDir() {
			shows = append(shows, n)
		}
	}
	sort.Slice(shows, func(i, j int) bool { return shows[i] < shows[j] })
	return shows, nil
}
