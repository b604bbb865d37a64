package properties

import (
	"net/netip"
	"strconv"
)

// jsonTail is reserved at construction so that Size can always close the
// object, whatever sequence of Add calls came before.
const jsonTail = 2

// Builder appends properties for one configuration file into a caller-owned
// buffer. In FormatFlat it writes "key=value\n" lines (a value that is not
// set is written commented out, documenting the default). In FormatJSON it
// writes one flat object {"name":{"key":"value",...}} and always includes
// every field, set or not.
//
// Every Add method either writes the whole field and returns true, or writes
// nothing and returns false. The cursor never passes len(buf).
type Builder struct {
	buf    []byte
	n      int
	format Format
	fields int
	ok     bool
}

// NewBuilder starts a properties file called name in buf using format f.
// If the header does not fit, every Add fails and Size reports 0.
func NewBuilder(name string, buf []byte, f Format) *Builder {
	b := &Builder{buf: buf, format: f}

	var need int
	if f == FormatJSON {
		need = len(`{"`) + len(name) + len(`":{`) + jsonTail
	} else if name != "" {
		need = 1 + len(name) + 1
	}
	if need > len(buf) {
		return b
	}

	out := b.buf[:0:len(b.buf)]
	if f == FormatJSON {
		out = append(out, '{', '"')
		out = append(out, name...)
		out = append(out, '"', ':', '{')
	} else if name != "" {
		out = append(out, '#')
		out = append(out, name...)
		out = append(out, '\n')
	}
	b.n = len(out)
	b.ok = true
	return b
}

// NewBuilderCurrent is NewBuilder with the process-wide format.
func NewBuilderCurrent(name string, buf []byte) *Builder {
	return NewBuilder(name, buf, CurrentFormat())
}

// Format returns the format the builder writes.
func (b *Builder) Format() Format {
	return b.format
}

// Add writes a string property.
func (b *Builder) Add(key, value string, isSet bool) bool {
	return b.add(key, []byte(value), true, isSet)
}

// AddUint writes an unsigned integer property.
func (b *Builder) AddUint(key string, value uint32, isSet bool) bool {
	var tmp [12]byte
	return b.add(key, strconv.AppendUint(tmp[:0], uint64(value), 10), false, isSet)
}

// AddInt writes a signed integer property. In JSON the value is quoted so
// that the sign survives a round trip through the transcoder.
func (b *Builder) AddInt(key string, value int32, isSet bool) bool {
	var tmp [12]byte
	return b.add(key, strconv.AppendInt(tmp[:0], int64(value), 10), value < 0, isSet)
}

// AddFloat writes a float with one decimal.
func (b *Builder) AddFloat(key string, value float32, isSet bool) bool {
	var tmp [32]byte
	v := strconv.AppendFloat(tmp[:0], float64(value), 'f', 1, 32)
	return b.add(key, v, value < 0, isSet)
}

// AddBool writes 1 or 0.
func (b *Builder) AddBool(key string, value bool, isSet bool) bool {
	v := []byte{'0'}
	if value {
		v[0] = '1'
	}
	return b.add(key, v, false, isSet)
}

// AddHex writes value as upper case hex, zero padded to width digits.
func (b *Builder) AddHex(key string, value uint32, width int, isSet bool) bool {
	const digits = "0123456789ABCDEF"
	var tmp [8]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = digits[value&0xF]
		value >>= 4
		if value == 0 {
			break
		}
	}
	for len(tmp)-i < width && i > 0 {
		i--
		tmp[i] = '0'
	}
	return b.add(key, tmp[i:], true, isSet)
}

// AddIPAddress writes a dotted quad. An invalid address is written as 0.0.0.0.
func (b *Builder) AddIPAddress(key string, ip netip.Addr, isSet bool) bool {
	if !ip.IsValid() {
		ip = netip.IPv4Unspecified()
	}
	var tmp [48]byte
	return b.add(key, ip.AppendTo(tmp[:0]), true, isSet)
}

// AddUTCOffset writes a UTC offset as +HH:MM or -HH:MM.
func (b *Builder) AddUTCOffset(key string, hours int32, minutes uint32, isSet bool) bool {
	var tmp [16]byte
	v := tmp[:0]
	if hours < 0 {
		v = append(v, '-')
		hours = -hours
	} else {
		v = append(v, '+')
	}
	v = append(v, byte('0'+hours/10%10), byte('0'+hours%10), ':')
	v = append(v, byte('0'+minutes/10%10), byte('0'+minutes%10))
	return b.add(key, v, true, isSet)
}

// AddComment writes "# text". No-op in JSON.
func (b *Builder) AddComment(text string) bool {
	if b.format == FormatJSON {
		return true
	}
	if !b.fits(2 + len(text) + 1) {
		return false
	}
	out := b.buf[:b.n:len(b.buf)]
	out = append(out, '#', ' ')
	out = append(out, text...)
	out = append(out, '\n')
	b.n = len(out)
	return true
}

// AddRaw writes line verbatim followed by a newline. No-op in JSON.
func (b *Builder) AddRaw(line string) bool {
	if b.format == FormatJSON {
		return true
	}
	if !b.fits(len(line) + 1) {
		return false
	}
	out := b.buf[:b.n:len(b.buf)]
	out = append(out, line...)
	out = append(out, '\n')
	b.n = len(out)
	return true
}

func (b *Builder) add(key string, value []byte, quote bool, isSet bool) bool {
	if b.format == FormatJSON {
		return b.addJSON(key, value, quote)
	}

	need := len(key) + 1 + len(value) + 1
	if !isSet {
		need++
	}
	if !b.fits(need) {
		return false
	}

	out := b.buf[:b.n:len(b.buf)]
	if !isSet {
		out = append(out, '#')
	}
	out = append(out, key...)
	out = append(out, '=')
	out = append(out, value...)
	out = append(out, '\n')
	b.n = len(out)
	b.fields++
	return true
}

func (b *Builder) addJSON(key string, value []byte, quote bool) bool {
	need := 1 + len(key) + 2 + len(value) + 1
	if quote {
		need += 2
	}
	if !b.fits(need + jsonTail) {
		return false
	}

	// Size may have closed the object already.
	if b.fields > 0 {
		b.buf[b.n-1] = ','
	}

	out := b.buf[:b.n:len(b.buf)]
	out = append(out, '"')
	out = append(out, key...)
	out = append(out, '"', ':')
	if quote {
		out = append(out, '"')
	}
	out = append(out, value...)
	if quote {
		out = append(out, '"')
	}
	out = append(out, ',')
	b.n = len(out)
	b.fields++
	return true
}

func (b *Builder) fits(n int) bool {
	return b.ok && b.n+n <= len(b.buf)
}

// Size finalizes the output and returns the number of bytes used. In JSON
// mode the object is closed, replacing the trailing comma. Calling Size
// more than once is harmless.
func (b *Builder) Size() int {
	if !b.ok {
		return 0
	}
	if b.format != FormatJSON {
		return b.n
	}
	end := b.n
	if b.fields > 0 {
		end--
	}
	b.buf[end] = '}'
	b.buf[end+1] = '}'
	return end + jsonTail
}

// Bytes returns the finalized output.
func (b *Builder) Bytes() []byte {
	return b.buf[:b.Size()]
}
