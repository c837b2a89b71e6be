// Package reader turns an io.Reader of UTF-8 bytes into validated text, either
// as maximal chunks of valid text or one scalar value at a time, while holding
// at most one chunk plus three carried bytes in memory.
package reader

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Policy decides what happens after a malformed span.
type Policy int

const (
	// Strict reports the first decode error and then ends the stream.
	Strict Policy = iota
	// Lenient replaces every malformed span with U+FFFD and keeps going.
	Lenient
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return `strict`
	case Lenient:
		return `lenient`
	}
	return `unknown`
}

const DefaultChunkSize = 4096

const replacement = "\uFFFD"

type Options struct {
	// ChunkSize is the number of bytes requested from the source per read.
	//
	// Default is DefaultChunkSize.
	ChunkSize int

	// Policy is the recovery policy. Default is Strict.
	Policy Policy

	// Logger receives debug entries for replaced spans and source errors.
	//
	// Default is Logger().
	Logger logrus.FieldLogger
}

func (o Options) withDefaults() (Options, error) {

	if o.ChunkSize < 0 {
		return o, errors.Errorf("invalid chunk size %v", o.ChunkSize)
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}

	if o.Policy != Strict && o.Policy != Lenient {
		return o, errors.Errorf("invalid recovery policy %v", int(o.Policy))
	}

	if o.Logger == nil {
		o.Logger = log
	}
	return o, nil
}

// New returns a CharReader over r.
func New(r io.Reader, o Options) (*CharReader, error) {
	return NewCharReader(r, o)
}
