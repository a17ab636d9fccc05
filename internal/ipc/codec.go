package ipc

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Message is one typed payload. Size must agree byte-for-byte with what
// Place writes.
type Message interface {
	Command() Command
	Size() int
	Place(e *Encoder)
}

// Marshal serializes m into a buffer of exactly m.Size() bytes.
func Marshal(m Message) ([]byte, error) {
	size := m.Size()
	e := &Encoder{buf: make([]byte, size)}
	m.Place(e)
	if e.err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Command(), e.err)
	}
	if e.off != size {
		return nil, fmt.Errorf("encode %s: %w: wrote %d of %d bytes", m.Command(), ErrSizeMismatch, e.off, size)
	}
	return e.buf, nil
}

// Encoder writes positional fields into a fixed-capacity buffer.
// Writing past the capacity records ErrSizeMismatch instead of growing.
type Encoder struct {
	buf []byte
	off int
	err error
}

// PutInt writes one fixed-width integer.
func (e *Encoder) PutInt(v int64) {
	if e.err != nil {
		return
	}
	if len(e.buf)-e.off < intSize {
		e.err = fmt.Errorf("%w: integer overflows capacity %d", ErrSizeMismatch, len(e.buf))
		return
	}
	binary.NativeEndian.PutUint64(e.buf[e.off:], uint64(v))
	e.off += intSize
}

// PutString writes s followed by its NUL terminator.
func (e *Encoder) PutString(s string) {
	if e.err != nil {
		return
	}
	if strings.IndexByte(s, 0) >= 0 {
		e.err = fmt.Errorf("%w: string %q contains NUL", ErrMalformedPayload, s)
		return
	}
	if len(e.buf)-e.off < len(s)+1 {
		e.err = fmt.Errorf("%w: string overflows capacity %d", ErrSizeMismatch, len(e.buf))
		return
	}
	e.off += copy(e.buf[e.off:], s)
	e.buf[e.off] = 0
	e.off++
}

// PutStrings writes a count followed by each string.
func (e *Encoder) PutStrings(list []string) {
	e.PutInt(int64(len(list)))
	for _, s := range list {
		e.PutString(s)
	}
}

func stringSize(s string) int {
	return len(s) + 1
}

func stringsSize(list []string) int {
	n := intSize
	for _, s := range list {
		n += stringSize(s)
	}
	return n
}

// Decoder reads positional fields from a declared payload.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder reads from payload.
func NewDecoder(payload []byte) *Decoder {
	return &Decoder{buf: payload}
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// Int reads one fixed-width integer.
func (d *Decoder) Int() (int64, error) {
	if d.Remaining() < intSize {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedPayload, intSize, d.off, d.Remaining())
	}
	v := int64(binary.NativeEndian.Uint64(d.buf[d.off:]))
	d.off += intSize
	return v, nil
}

// CString reads up to the next NUL within the remaining payload.
func (d *Decoder) CString() (string, error) {
	rest := d.buf[d.off:]
	for i, b := range rest {
		if b == 0 {
			s := string(rest[:i])
			d.off += i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformedPayload, d.off)
}

// CStrings reads a count followed by that many strings. Every string needs
// at least its terminator, so a count larger than the remaining bytes is
// rejected before allocating.
func (d *Decoder) CStrings() ([]string, error) {
	count, err := d.Int()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > int64(d.Remaining()) {
		return nil, fmt.Errorf("%w: string count %d with %d bytes left", ErrMalformedPayload, count, d.Remaining())
	}
	list := make([]string, 0, count)
	for i := int64(0); i < count; i++ {
		s, err := d.CString()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// Finish rejects trailing bytes.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedPayload, d.Remaining())
	}
	return nil
}
