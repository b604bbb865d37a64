package configstore

import (
	_ "embed"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanvught/rpidmx512-sub012/internal/properties"
)

//go:embed schema.yaml
var defaultSchema []byte

// KeyType selects how a value is validated and rendered.
type KeyType string

const (
	TypeString    KeyType = "string"
	TypeUint      KeyType = "uint"
	TypeInt       KeyType = "int"
	TypeFloat     KeyType = "float"
	TypeBool      KeyType = "bool"
	TypeHex       KeyType = "hex"
	TypeIP        KeyType = "ip"
	TypeUTCOffset KeyType = "utc_offset"
)

const maxFileName = 32

// Schema lists the configuration files the store knows and, per file, the
// keys in rendering order with their defaults.
type Schema struct {
	Version int          `yaml:"version"`
	Files   []FileSchema `yaml:"files"`

	byName map[string]*FileSchema
}

// FileSchema describes one .txt file.
type FileSchema struct {
	Name string `yaml:"name"`
	Keys []Key  `yaml:"keys"`

	byKey map[string]*Key
}

// Key is one property of a file.
type Key struct {
	Name    string  `yaml:"name"`
	Type    KeyType `yaml:"type"`
	Default string  `yaml:"default"`
	Width   int     `yaml:"width,omitempty"` // hex digits
}

// DefaultSchema returns the compiled-in schema.
func DefaultSchema() (*Schema, error) {
	return ParseSchema(defaultSchema)
}

// LoadSchema reads a schema file. An empty path selects the compiled-in
// schema.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return DefaultSchema()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema parses and validates a YAML schema.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if s.Version != 1 {
		return nil, fmt.Errorf("unsupported schema version: %d (expected 1)", s.Version)
	}

	s.byName = make(map[string]*FileSchema, len(s.Files))
	for i := range s.Files {
		f := &s.Files[i]
		if !validFileName(f.Name) {
			return nil, fmt.Errorf("schema: invalid file name %q", f.Name)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate file %q", f.Name)
		}
		s.byName[f.Name] = f

		f.byKey = make(map[string]*Key, len(f.Keys))
		for j := range f.Keys {
			k := &f.Keys[j]
			if !validKeyName(k.Name) {
				return nil, fmt.Errorf("schema: %s: invalid key name %q", f.Name, k.Name)
			}
			if _, dup := f.byKey[k.Name]; dup {
				return nil, fmt.Errorf("schema: %s: duplicate key %q", f.Name, k.Name)
			}
			if err := k.Validate(k.Default); err != nil {
				return nil, fmt.Errorf("schema: %s: default: %w", f.Name, err)
			}
			f.byKey[k.Name] = k
		}
	}

	return &s, nil
}

// File returns the schema of the named file.
func (s *Schema) File(name string) (*FileSchema, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Names returns the file names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Files))
	for i := range s.Files {
		names[i] = s.Files[i].Name
	}
	return names
}

// Key returns the named key.
func (f *FileSchema) Key(name string) (*Key, bool) {
	k, ok := f.byKey[name]
	return k, ok
}

// Validate reports whether value is acceptable for the key.
func (k *Key) Validate(value string) error {
	var err error
	switch k.Type {
	case TypeString:
		if !validString(value) {
			err = fmt.Errorf("contains reserved characters")
		}
	case TypeUint:
		_, err = strconv.ParseUint(value, 10, 32)
	case TypeInt:
		_, err = strconv.ParseInt(value, 10, 32)
	case TypeFloat:
		_, err = strconv.ParseFloat(value, 32)
	case TypeBool:
		if value != "0" && value != "1" {
			err = fmt.Errorf("want 0 or 1")
		}
	case TypeHex:
		_, err = strconv.ParseUint(value, 16, 32)
	case TypeIP:
		var ip netip.Addr
		ip, err = netip.ParseAddr(value)
		if err == nil && !ip.Is4() {
			err = fmt.Errorf("not an IPv4 address")
		}
	case TypeUTCOffset:
		_, _, err = parseUTCOffset(value)
	default:
		return fmt.Errorf("key %s: unknown type %q", k.Name, k.Type)
	}
	if err != nil {
		return fmt.Errorf("key %s: invalid %s value %q: %w", k.Name, k.Type, value, err)
	}
	return nil
}

// add renders a validated value.
func (k *Key) add(b *properties.Builder, value string, isSet bool) bool {
	switch k.Type {
	case TypeUint:
		n, _ := strconv.ParseUint(value, 10, 32)
		return b.AddUint(k.Name, uint32(n), isSet)
	case TypeInt:
		n, _ := strconv.ParseInt(value, 10, 32)
		return b.AddInt(k.Name, int32(n), isSet)
	case TypeFloat:
		f, _ := strconv.ParseFloat(value, 32)
		return b.AddFloat(k.Name, float32(f), isSet)
	case TypeBool:
		return b.AddBool(k.Name, value == "1", isSet)
	case TypeHex:
		n, _ := strconv.ParseUint(value, 16, 32)
		return b.AddHex(k.Name, uint32(n), k.Width, isSet)
	case TypeIP:
		ip, _ := netip.ParseAddr(value)
		return b.AddIPAddress(k.Name, ip, isSet)
	case TypeUTCOffset:
		h, m, _ := parseUTCOffset(value)
		return b.AddUTCOffset(k.Name, h, m, isSet)
	default:
		return b.Add(k.Name, value, isSet)
	}
}

// parseUTCOffset accepts [+-]HH:MM within -12:00..+14:00.
func parseUTCOffset(s string) (int32, uint32, error) {
	sign := int32(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("want [+-]HH:MM")
	}
	h, err := strconv.ParseUint(hh, 10, 8)
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.ParseUint(mm, 10, 8)
	if err != nil {
		return 0, 0, err
	}
	hours := sign * int32(h)
	if m > 59 || hours < -12 || hours > 14 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hours, uint32(m), nil
}

func validFileName(name string) bool {
	base, ok := strings.CutSuffix(name, ".txt")
	return ok && len(name) <= maxFileName && validKeyName(base)
}

func validKeyName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// validString rejects what would not survive the trip through flat text and
// the JSON transcoder.
func validString(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < ' ' || c > '~' || c == '"' || c == ',' || c == '}' || c == '\\' {
			return false
		}
	}
	return true
}
