// Package decoder implements an incremental, validating UTF-8 decoder.
//
// A Decoder is fed arbitrary byte spans. Sequences that are split between
// spans are carried over internally, so callers never need to look ahead
// into data they have not received yet.
package decoder

import "unicode/utf8"

// MaxCarry is the most bytes a Decoder ever holds between calls.
const MaxCarry = utf8.UTFMax - 1

const (
	contMask = 0xC0
	contBits = 0x80
)

// leadMask keeps the payload bits of a lead byte, indexed by sequence length.
var leadMask = [utf8.UTFMax + 1]byte{0, 0x7F, 0x1F, 0x0F, 0x07}

// minValue is the smallest code point that needs a sequence of that length.
var minValue = [utf8.UTFMax + 1]rune{0, 0, 0x80, 0x800, 0x10000}

// Unit is one decoded scalar value or one malformed span.
// Offset and Size locate the bytes in the logical stream; for errors Rune is
// utf8.RuneError.
type Unit struct {
	Rune   rune
	Offset int64
	Size   int
	Err    *Error
}

// Decoder is the UTF-8 state machine. The zero value is ready to use.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	carry [MaxCarry]byte
	// n is the number of carried bytes, 0 when no sequence is pending.
	n int
	// size is the length announced by the carried lead byte.
	size   int
	value  rune
	offset int64
}

// leadSize returns the sequence length selected by a lead byte, or 0 when b
// cannot start a sequence.
func leadSize(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	}
	return 0
}

func validate(r rune, size int) Kind {
	switch {
	case r < minValue[size]:
		return OverlongEncoding
	case r >= 0xD800 && r <= 0xDFFF:
		return SurrogateCodePoint
	case r > utf8.MaxRune:
		return CodePointOutOfRange
	}
	return 0
}

// Next consumes bytes from p until one unit is complete and returns it along
// with the number of bytes of p consumed. If p runs out first, every byte of
// p has been absorbed into the carry and ok is false.
//
// A byte that interrupts a sequence is not consumed: the UnexpectedContinuation
// unit covers only the carried bytes and the interrupting byte is decoded as a
// lead byte by the following call.
func (d *Decoder) Next(p []byte) (u Unit, n int, ok bool) {

	for n < len(p) {
		b := p[n]

		if d.n == 0 {
			n++
			d.offset++

			size := leadSize(b)
			switch size {
			case 0:
				return d.fail(InvalidLeadByte, 1), n, true
			case 1:
				return Unit{Rune: rune(b), Offset: d.offset - 1, Size: 1}, n, true
			}

			d.carry[0] = b
			d.n = 1
			d.size = size
			d.value = rune(b & leadMask[size])
			continue
		}

		if b&contMask != contBits {
			return d.fail(UnexpectedContinuation, d.n), n, true
		}

		n++
		d.offset++
		d.value = d.value<<6 | rune(b&^contMask)

		if d.n+1 < d.size {
			d.carry[d.n] = b
			d.n++
			continue
		}

		size := d.size
		start := d.offset - int64(size)
		d.n = 0

		if kind := validate(d.value, size); kind != 0 {
			return Unit{Rune: utf8.RuneError, Offset: start, Size: size, Err: NewError(kind, start, size)}, n, true
		}
		return Unit{Rune: d.value, Offset: start, Size: size}, n, true
	}

	return Unit{}, n, false
}

// Feed appends to dst every unit completed by p. A trailing partial sequence
// is kept for the next call.
func (d *Decoder) Feed(dst []Unit, p []byte) []Unit {
	for len(p) > 0 {
		u, n, ok := d.Next(p)
		p = p[n:]
		if !ok {
			break
		}
		dst = append(dst, u)
	}
	return dst
}

// Finish ends the stream. A pending partial sequence is reported as
// TruncatedSequenceAtEnd covering the carried bytes.
func (d *Decoder) Finish() (u Unit, ok bool) {
	if d.n == 0 {
		return
	}
	return d.fail(TruncatedSequenceAtEnd, d.n), true
}

// fail drops the carry and reports the last size bytes before the cursor.
func (d *Decoder) fail(kind Kind, size int) Unit {
	d.n = 0
	start := d.offset - int64(size)
	return Unit{Rune: utf8.RuneError, Offset: start, Size: size, Err: NewError(kind, start, size)}
}

// Pending returns the carried bytes of an incomplete sequence. The slice is
// only valid until the next call on d.
func (d *Decoder) Pending() []byte {
	return d.carry[:d.n]
}

// Offset is the number of bytes fed so far, carried bytes included.
func (d *Decoder) Offset() int64 {
	return d.offset
}

func (d *Decoder) Reset() {
	*d = Decoder{}
}
