// Package configstore persists the device's configuration files.
//
// Every file is a flat properties document ("#name.txt" followed by
// key=value lines) in one directory. Which files exist, which keys they hold
// and the default of each key come from a YAML schema; a compiled-in schema
// is used unless the daemon configuration names another.
//
// Only keys that were written are stored. Get fills in the rest from the
// schema and renders them as unset, so in flat format a default reads as
// "#key=value". Set accepts the JSON a Get in JSON format produced and
// merges it into the file; the write goes through a temporary file and a
// rename.
//
// Errors wrap the httpd sentinels so the engine can pick the status:
// httpd.ErrUnknownConfig for a file not in the schema, httpd.ErrMalformed for
// bodies it cannot read, httpd.ErrNoSpace when output does not fit.
package configstore
