package reader

import (
	"io"
	"unicode/utf8"

	"github.com/komkom/utf8stream/decoder"
)

// Scalar is one Unicode scalar value read from the stream. Under the Lenient
// policy a malformed span is returned as utf8.RuneError with Err set and Size
// covering the whole span.
type Scalar struct {
	Rune   rune
	Offset int64
	Size   int
	Err    *decoder.Error
}

// CharReader reads one scalar value at a time on top of a ChunkReader.
type CharReader struct {
	chunks *ChunkReader
	cur    Chunk
	i      int
}

var _ io.RuneReader = (*CharReader)(nil)

func NewCharReader(r io.Reader, o Options) (*CharReader, error) {

	chunks, err := NewChunkReader(r, o)
	if err != nil {
		return nil, err
	}
	return NewCharReaderFrom(chunks), nil
}

// NewCharReaderFrom reads scalars from chunks. The caller must not use chunks
// directly afterwards.
func NewCharReaderFrom(chunks *ChunkReader) *CharReader {
	return &CharReader{chunks: chunks}
}

// Next returns the next scalar. Errors are those of ChunkReader.Next.
func (c *CharReader) Next() (s Scalar, err error) {

	for c.i >= len(c.cur.Text) {
		c.cur, err = c.chunks.Next()
		c.i = 0
		if err != nil {
			return
		}
	}

	if c.cur.Err != nil {
		c.i = len(c.cur.Text)
		return Scalar{Rune: utf8.RuneError, Offset: c.cur.Offset, Size: c.cur.Consumed, Err: c.cur.Err}, nil
	}

	// chunk text is validated, DecodeRune only slices it
	r, size := utf8.DecodeRune(c.cur.Text[c.i:])
	s = Scalar{Rune: r, Offset: c.cur.Offset + int64(c.i), Size: size}
	c.i += size
	return s, nil
}

// ReadRune implements io.RuneReader. Size is the number of input bytes the
// rune stands for.
func (c *CharReader) ReadRune() (r rune, size int, err error) {
	s, err := c.Next()
	return s.Rune, s.Size, err
}
