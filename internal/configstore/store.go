package configstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/jsonprops"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
	"github.com/vanvught/rpidmx512-sub012/internal/properties"
)

const (
	// maxFileSize bounds what Set accepts and what is read back from disk.
	maxFileSize = 16 * 1024
	filePerm    = 0o644
)

// Store keeps one properties file per schema entry in a directory.
type Store struct {
	dir    string
	schema *Schema

	mu sync.Mutex
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string, schema *Schema) (*Store, error) {
	if schema == nil {
		return nil, errors.New("configstore: nil schema")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{dir: dir, schema: schema}, nil
}

// Dir returns the directory the files live in.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the known file names in schema order.
func (s *Store) List() []string {
	return s.schema.Names()
}

// Get renders the named file into buf in the process-wide format. Keys
// written by Set are rendered as set, all others with their default.
func (s *Store) Get(name string, buf []byte) (int, error) {
	fs, ok := s.schema.File(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", httpd.ErrUnknownConfig, name)
	}

	s.mu.Lock()
	values, err := s.load(fs)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	b := properties.NewBuilderCurrent(name, buf)
	for i := range fs.Keys {
		k := &fs.Keys[i]
		value, isSet := values[k.Name]
		if !isSet {
			value = k.Default
		}
		if !k.add(b, value, isSet) {
			return 0, fmt.Errorf("%w: rendering %s", httpd.ErrNoSpace, name)
		}
	}
	return b.Size(), nil
}

// Values returns the keys explicitly set in the named file.
func (s *Store) Values(name string) (map[string]string, error) {
	fs, ok := s.schema.File(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", httpd.ErrUnknownConfig, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(fs)
}

// Set takes {"file.txt":{"key":value,...}} as posted by the web UI, or the
// same content as flat text starting with #file.txt, validates every key and
// merges the values into the file.
func (s *Store) Set(body []byte) error {
	if len(body) > maxFileSize {
		return fmt.Errorf("%w: body of %d bytes", httpd.ErrNoSpace, len(body))
	}
	text := append([]byte(nil), body...)

	n, err := jsonprops.ConvertJSONFile(text)
	switch {
	case errors.Is(err, jsonprops.ErrNotJSON):
		n = len(text)
	case err != nil:
		return fmt.Errorf("%w: %v", httpd.ErrMalformed, err)
	}
	text = text[:n]

	nl := bytes.IndexByte(text, '\n')
	if len(text) == 0 || text[0] != '#' || nl < 0 {
		return fmt.Errorf("%w: missing file name", httpd.ErrMalformed)
	}
	name := string(bytes.TrimRight(text[1:nl], "\r"))

	fs, ok := s.schema.File(name)
	if !ok {
		return fmt.Errorf("%w: %s", httpd.ErrUnknownConfig, name)
	}

	update, err := parseLines(fs, text[nl+1:], true)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", httpd.ErrMalformed, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load(fs)
	if err != nil {
		return err
	}
	for k, v := range update {
		values[k] = v
	}
	if err := s.save(fs, values); err != nil {
		return err
	}

	logging.Info("configuration updated",
		zap.String("file", name),
		zap.Int("keys", len(update)),
	)
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// load reads the file's set values. A missing file has none. Lines that no
// longer match the schema are skipped.
func (s *Store) load(fs *FileSchema) (map[string]string, error) {
	data, err := os.ReadFile(s.path(fs.Name))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fs.Name, err)
	}
	if len(data) > maxFileSize {
		data = data[:maxFileSize]
	}
	values, _ := parseLines(fs, data, false)
	return values, nil
}

// save writes the set values in schema order, atomically.
func (s *Store) save(fs *FileSchema, values map[string]string) error {
	buf := make([]byte, maxFileSize)
	b := properties.NewBuilder(fs.Name, buf, properties.FormatFlat)
	for i := range fs.Keys {
		k := &fs.Keys[i]
		if v, ok := values[k.Name]; ok && !b.Add(k.Name, v, true) {
			return fmt.Errorf("%w: %s exceeds %d bytes", httpd.ErrNoSpace, fs.Name, maxFileSize)
		}
	}
	data := b.Bytes()

	path := s.path(fs.Name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", fs.Name, err)
	}
	return nil
}

// parseLines reads key=value lines. Comment lines are skipped. In strict
// mode an unknown key or invalid value is an error; otherwise it is logged
// and dropped.
func parseLines(fs *FileSchema, data []byte, strict bool) (map[string]string, error) {
	values := make(map[string]string)
	for len(data) > 0 {
		var line []byte
		if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
			line, data = data[:nl], data[nl+1:]
		} else {
			line, data = data, nil
		}
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		key, value, ok := bytes.Cut(line, []byte{'='})
		if !ok {
			if strict {
				return nil, fmt.Errorf("line %q has no '='", line)
			}
			continue
		}

		k, known := fs.Key(string(key))
		if !known {
			if strict {
				return nil, fmt.Errorf("unknown key %q", key)
			}
			logging.Debug("skipping unknown key", zap.String("file", fs.Name), zap.ByteString("key", key))
			continue
		}
		if err := k.Validate(string(value)); err != nil {
			if strict {
				return nil, err
			}
			logging.Warn("ignoring invalid stored value", zap.String("file", fs.Name), zap.Error(err))
			continue
		}
		values[k.Name] = string(value)
	}
	return values, nil
}
