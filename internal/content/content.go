// Package content holds the web UI files served for the fixed paths
// (/, /dmx, /rdm, ...) and any other static file the UI references.
package content

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed www
var www embed.FS

// Files is an in-memory set of static files keyed by file name.
type Files struct {
	files map[string][]byte
}

// Load reads every embedded file once so that lookups never allocate.
func Load() (*Files, error) {
	f := &Files{files: make(map[string][]byte)}
	err := fs.WalkDir(www, "www", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := www.ReadFile(p)
		if err != nil {
			return err
		}
		f.files[path.Base(p)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Lookup returns the file contents. Paths with directories are never found.
func (f *Files) Lookup(file string) ([]byte, bool) {
	data, ok := f.files[file]
	return data, ok
}

// Names lists the available files.
func (f *Files) Names() []string {
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	return names
}
