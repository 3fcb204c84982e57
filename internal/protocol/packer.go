package protocol

import (
	"bytes"
	"errors"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var ErrShortPacket = errors.New("packet too short")

// maxIntBytes is the longest encoding a 32-bit value can take.
const maxIntBytes = 5

// Packer appends variable length integers and zero terminated strings.
type Packer struct {
	buf bytes.Buffer
}

func NewPacker() *Packer {
	return &Packer{}
}

// AddInt encodes i as: sign in bit 6 and 6 data bits in the first byte,
// 7 data bits in every following byte, bit 7 set while more bytes follow.
func (p *Packer) AddInt(i int) {
	v := int32(i)
	var b byte
	if v < 0 {
		b = 0x40
		v = ^v
	}

	b |= byte(v & 0x3f)
	v >>= 6

	for v != 0 {
		b |= 0x80
		p.buf.WriteByte(b)
		b = byte(v & 0x7f)
		v >>= 7
	}
	p.buf.WriteByte(b)
}

func (p *Packer) AddString(s string) {
	p.buf.WriteString(s)
	p.buf.WriteByte(0)
}

func (p *Packer) Bytes() []byte {
	return p.buf.Bytes()
}

func (p *Packer) Len() int {
	return p.buf.Len()
}

// Unpacker reads what Packer writes. The first failure sticks: later reads
// return zero values and Err reports it.
type Unpacker struct {
	data []byte
	pos  int
	err  error
}

func NewUnpacker(data []byte) *Unpacker {
	return &Unpacker{data: data}
}

func (u *Unpacker) GetInt() int {
	if u.err != nil {
		return 0
	}
	if u.pos >= len(u.data) {
		u.err = ErrShortPacket
		return 0
	}

	b := u.data[u.pos]
	u.pos++

	sign := int32(b>>6) & 1
	v := int32(b & 0x3f)
	shift := uint(6)

	for n := 1; b&0x80 != 0; n++ {
		if n >= maxIntBytes {
			u.err = errors.New("integer encoding too long")
			return 0
		}
		if u.pos >= len(u.data) {
			u.err = ErrShortPacket
			return 0
		}
		b = u.data[u.pos]
		u.pos++
		v |= int32(b&0x7f) << shift
		shift += 7
	}

	v ^= -sign
	return int(v)
}

// GetString reads a zero terminated string and replaces control characters
// with spaces.
func (u *Unpacker) GetString() string {
	if u.err != nil {
		return ""
	}

	end := bytes.IndexByte(u.data[u.pos:], 0)
	if end < 0 {
		u.err = ErrShortPacket
		return ""
	}

	raw := string(u.data[u.pos : u.pos+end])
	u.pos += end + 1

	return sanitize(raw)
}

func (u *Unpacker) Remaining() int {
	return len(u.data) - u.pos
}

func (u *Unpacker) Err() error {
	return u.err
}

var controlToSpace = runes.Map(func(r rune) rune {
	if r < 32 {
		return ' '
	}
	return r
})

func sanitize(s string) string {
	out, _, err := transform.String(controlToSpace, s)
	if err != nil {
		return s
	}
	return out
}
