package reader

import (
	"io"

	"github.com/komkom/utf8stream/decoder"
	"github.com/sirupsen/logrus"
)

// maxEmptyReads bounds consecutive (0, nil) reads from the source.
const maxEmptyReads = 100

// Chunk is a run of valid text taken from the stream.
type Chunk struct {
	// Text is valid UTF-8. It aliases the reader's buffer and is only valid
	// until the next call to Next.
	Text []byte

	// Offset is the stream offset of the first consumed byte.
	Offset int64

	// Consumed is the number of input bytes the chunk stands for. It differs
	// from len(Text) only for replacement chunks.
	Consumed int

	// Err is set on the replacement chunk produced for a malformed span under
	// the Lenient policy.
	Err *decoder.Error
}

// ChunkReader reads maximal runs of valid UTF-8 from a byte source.
//
// The reader owns a buffer of ChunkSize plus decoder.MaxCarry bytes. An
// incomplete sequence at the end of a read is carried to the front of the
// buffer before the next read, so a chunk never splits a scalar value.
type ChunkReader struct {
	src  io.Reader
	opts Options
	dec  decoder.Decoder

	buf []byte
	// base is the stream offset of buf[0].
	base int64
	// buf[head:tail] is decoded text not yet returned, buf[pos:end] is not
	// decoded yet.
	head, tail, pos, end int

	// srcErr is the error of the last read, acted on once buf is decoded.
	srcErr error
	// bad is a decode error waiting behind buf[head:tail].
	bad *decoder.Error
	// err is terminal.
	err error

	repl [len(replacement)]byte
}

func NewChunkReader(r io.Reader, o Options) (*ChunkReader, error) {

	o, err := o.withDefaults()
	if err != nil {
		return nil, err
	}

	return &ChunkReader{
		src:  r,
		opts: o,
		buf:  make([]byte, o.ChunkSize+decoder.MaxCarry),
	}, nil
}

// Next returns the next chunk of text.
//
// Text decoded before a malformed span is returned before the span is
// reported. Under Strict the malformed span is returned as a *decoder.Error and
// every later call returns io.EOF. Under Lenient it comes back as a replacement
// chunk. Errors of the source are wrapped in a *decoder.SourceError
// and returned on every later call.
func (r *ChunkReader) Next() (c Chunk, err error) {

	for {
		if r.head < r.tail {
			return r.text(), nil
		}

		if r.bad != nil {
			return r.reportBad()
		}

		if r.err != nil {
			return Chunk{}, r.err
		}

		if r.pos < r.end {
			r.decode()
			continue
		}

		if r.srcErr != nil {
			r.finish()
			continue
		}

		r.fill()
	}
}

func (r *ChunkReader) text() Chunk {

	c := Chunk{
		Text:     r.buf[r.head:r.tail],
		Offset:   r.base + int64(r.head),
		Consumed: r.tail - r.head,
	}
	r.head = r.tail
	return c
}

func (r *ChunkReader) decode() {

	for r.pos < r.end {
		u, n, ok := r.dec.Next(r.buf[r.pos:r.end])
		r.pos += n
		if !ok {
			return
		}

		if u.Err != nil {
			r.bad = u.Err
			return
		}
		r.tail = r.pos
	}
}

func (r *ChunkReader) reportBad() (Chunk, error) {

	e := r.bad
	r.bad = nil
	r.head, r.tail = r.pos, r.pos

	if r.opts.Policy == Strict {
		r.err = io.EOF
		return Chunk{}, e
	}

	r.opts.Logger.WithFields(logrus.Fields{
		`kind`:   e.Kind.String(),
		`offset`: e.Offset,
		`length`: e.Length,
	}).Debug(`replaced malformed utf-8`)

	n := copy(r.repl[:], replacement)
	return Chunk{Text: r.repl[:n], Offset: e.Offset, Consumed: e.Length, Err: e}, nil
}

// fill moves the carried bytes to the front of buf and reads the next chunk
// behind them.
func (r *ChunkReader) fill() {

	k := copy(r.buf, r.dec.Pending())
	r.base = r.dec.Offset() - int64(k)
	r.head, r.tail, r.pos, r.end = 0, 0, k, k

	for i := 0; i < maxEmptyReads; i++ {

		n, err := r.src.Read(r.buf[k : k+r.opts.ChunkSize])
		if n < 0 || n > r.opts.ChunkSize {
			n = 0
		}
		r.end = k + n

		if err != nil {
			r.srcErr = err
			return
		}

		if n > 0 {
			return
		}
	}

	r.srcErr = io.ErrNoProgress
}

func (r *ChunkReader) finish() {

	err := r.srcErr
	r.srcErr = nil

	if err != io.EOF {
		r.opts.Logger.WithError(err).WithField(`offset`, r.dec.Offset()).Debug(`source failed`)
		r.err = decoder.NewSourceError(err, r.dec.Offset())
		return
	}

	r.err = io.EOF
	if u, ok := r.dec.Finish(); ok {
		r.bad = u.Err
	}
}
