// Package jsonprops converts the flat JSON objects produced by the device's
// web UI into properties lines, in place and without a JSON library.
//
// The accepted grammar is deliberately narrow: one object, optionally wrapping
// a single named inner object ({"file.txt":{...}}), string or unsigned numeric
// values, no arrays, no escapes, no nesting beyond that one level. Inputs
// outside it are not rejected, they are converted the same naive way, so
// callers must only feed it what properties.Builder emits in FormatJSON or
// what the UI posts. Known consequences:
//
//   - an unquoted value starts at its first digit, so -3 reads as 3
//   - true, false and null are skipped over and the next token is read instead
//   - a quote inside a string value ends the value
package jsonprops

import "errors"

var (
	// ErrNotJSON means the buffer does not start with '{'; it is assumed to
	// hold properties lines already.
	ErrNotJSON = errors.New("not a JSON object")

	// ErrMalformed means a string literal was not terminated.
	ErrMalformed = errors.New("malformed JSON object")
)

// ConvertJSONFile rewrites buf, which holds {"name.txt":{"key":value,...}},
// into "#name.txt\nkey=value\n..." and returns the new length. The first
// string literal is taken as the file name.
func ConvertJSONFile(buf []byte) (int, error) {
	return convert(buf, true)
}

// ConvertJSONObject rewrites {"key":value,...} into "key=value\n..." and
// returns the new length.
func ConvertJSONObject(buf []byte) (int, error) {
	return convert(buf, false)
}

// convert writes at w while reading at r; every emitted byte is paid for by
// at least one consumed byte, so w < r holds at each write.
func convert(buf []byte, named bool) (int, error) {
	if len(buf) == 0 || buf[0] != '{' {
		return 0, ErrNotJSON
	}

	r, w := 1, 0

	if named {
		q := indexFrom(buf, r, '"')
		if q < 0 {
			return 0, ErrMalformed
		}
		r = q + 1

		buf[w] = '#'
		w++
		for r < len(buf) && buf[r] != '"' {
			buf[w] = buf[r]
			w++
			r++
		}
		if r == len(buf) {
			return 0, ErrMalformed
		}
		r++
		buf[w] = '\n'
		w++
	}

	for {
		q := indexFrom(buf, r, '"')
		if q < 0 {
			break
		}
		r = q + 1

		for r < len(buf) && buf[r] != '"' {
			buf[w] = buf[r]
			w++
			r++
		}
		if r == len(buf) {
			return 0, ErrMalformed
		}
		r++
		buf[w] = '='
		w++

		if c := indexFrom(buf, r, ':'); c >= 0 {
			r = c + 1
		}

		for r < len(buf) && !isDigit(buf[r]) && buf[r] != '"' {
			r++
		}
		if r < len(buf) && buf[r] == '"' {
			r++
		}

		for r < len(buf) && buf[r] != '"' && buf[r] != ',' && buf[r] != '}' {
			if c := buf[r]; c >= ' ' && c <= '~' {
				buf[w] = c
				w++
			}
			r++
		}
		if r < len(buf) && buf[r] == '"' {
			r++
		}

		buf[w] = '\n'
		w++
	}

	return w, nil
}

func indexFrom(buf []byte, from int, c byte) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == c {
			return i
		}
	}
	return -1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
