package reader

import (
	"io"

	"github.com/komkom/utf8stream/decoder"
	"golang.org/x/text/transform"
)

// Transformer validates UTF-8 as a transform.Transformer. Valid text is copied
// unchanged; malformed spans are replaced with U+FFFD under Lenient or stop the
// transformation with a *decoder.Error under Strict.
//
// Unlike ChunkReader it never carries bytes between calls: an incomplete tail
// is left unconsumed with transform.ErrShortSrc, as the transform package
// expects.
type Transformer struct {
	policy Policy
	dec    decoder.Decoder
}

var _ transform.Transformer = (*Transformer)(nil)

func NewTransformer(p Policy) *Transformer {
	return &Transformer{policy: p}
}

func (t *Transformer) Reset() {
	t.dec.Reset()
}

func (t *Transformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {

	for nSrc < len(src) {

		saved := t.dec
		u, n, ok := t.dec.Next(src[nSrc:])

		if !ok {
			if !atEOF {
				t.dec = saved
				return nDst, nSrc, transform.ErrShortSrc
			}
			u, _ = t.dec.Finish()
		}

		if u.Err != nil && t.policy == Strict {
			t.dec = saved
			return nDst, nSrc, u.Err
		}

		out := src[nSrc+n-u.Size : nSrc+n]
		if u.Err != nil {
			out = []byte(replacement)
		}

		if nDst+len(out) > len(dst) {
			t.dec = saved
			return nDst, nSrc, transform.ErrShortDst
		}

		nDst += copy(dst[nDst:], out)
		nSrc += n
	}

	return nDst, nSrc, nil
}

// NewSanitizer returns a reader of r in which every malformed span is replaced
// with U+FFFD. Reads from r request at most o.ChunkSize bytes; o.Policy is
// ignored.
func NewSanitizer(r io.Reader, o Options) (io.Reader, error) {

	o.Policy = Lenient
	o, err := o.withDefaults()
	if err != nil {
		return nil, err
	}

	return transform.NewReader(boundedReader{r: r, n: o.ChunkSize}, NewTransformer(o.Policy)), nil
}

// boundedReader caps the size of every Read on r at n bytes.
type boundedReader struct {
	r io.Reader
	n int
}

func (b boundedReader) Read(p []byte) (int, error) {
	if len(p) > b.n {
		p = p[:b.n]
	}
	return b.r.Read(p)
}
