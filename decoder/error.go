package decoder

import "fmt"

// Kind classifies a decode failure.
type Kind int

const (
	InvalidLeadByte Kind = iota + 1
	UnexpectedContinuation
	OverlongEncoding
	SurrogateCodePoint
	CodePointOutOfRange
	TruncatedSequenceAtEnd
	IoError
)

var kindNames = map[Kind]string{
	InvalidLeadByte:        `invalid lead byte`,
	UnexpectedContinuation: `unexpected continuation`,
	OverlongEncoding:       `overlong encoding`,
	SurrogateCodePoint:     `surrogate code point`,
	CodePointOutOfRange:    `code point out of range`,
	TruncatedSequenceAtEnd: `truncated sequence at end`,
	IoError:                `io error`,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error reports the exact byte span of the stream that failed to decode.
type Error struct {
	Kind   Kind
	Offset int64
	Length int
}

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrInvalidLeadByte        = &Error{Kind: InvalidLeadByte}
	ErrUnexpectedContinuation = &Error{Kind: UnexpectedContinuation}
	ErrOverlongEncoding       = &Error{Kind: OverlongEncoding}
	ErrSurrogateCodePoint     = &Error{Kind: SurrogateCodePoint}
	ErrCodePointOutOfRange    = &Error{Kind: CodePointOutOfRange}
	ErrTruncatedSequenceAtEnd = &Error{Kind: TruncatedSequenceAtEnd}
)

func NewError(kind Kind, offset int64, length int) *Error {
	return &Error{Kind: kind, Offset: offset, Length: length}
}

func (e *Error) Error() string {
	return fmt.Sprintf("pos: %v %v (%v bytes)", e.Offset, e.Kind, e.Length)
}

func (e *Error) Position() int64 {
	return e.Offset
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// SourceError is an error of the byte source, positioned at the number of
// bytes read before it. errors.Cause, errors.Is and errors.As reach Err.
type SourceError struct {
	Offset int64
	Err    error
}

func NewSourceError(err error, offset int64) *SourceError {
	return &SourceError{Offset: offset, Err: err}
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("pos: %v %v: %v", e.Offset, IoError, e.Err)
}

func (e *SourceError) Kind() Kind {
	return IoError
}

func (e *SourceError) Position() int64 {
	return e.Offset
}

func (e *SourceError) Cause() error {
	return e.Err
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
