// Package scanner provides a lexing cursor over decoded scalar values with
// peek, conditional advance, checkpoints and line/column tracking.
package scanner

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/komkom/utf8stream/reader"
	"github.com/pkg/errors"
)

// ScalarSource is implemented by *reader.CharReader.
type ScalarSource interface {
	Next() (reader.Scalar, error)
}

// Position locates a scalar in the stream. Line and Column start at 1; a line
// feed starts a new line.
type Position struct {
	Offset int64
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d column %d (byte offset %d)", p.Line, p.Column, p.Offset)
}

func (p Position) advance(s reader.Scalar) Position {

	p.Offset = s.Offset + int64(s.Size)
	if s.Rune == '\n' && s.Err == nil {
		p.Line++
		p.Column = 1
		return p
	}
	p.Column++
	return p
}

type item struct {
	s   reader.Scalar
	pos Position
}

// Mark is a checkpoint returned by Scanner.Mark.
type Mark struct {
	gen      uint
	position int
}

var ErrStaleMark = errors.New(`mark is stale`)

// Scanner reads scalars from a ScalarSource on demand. Everything read since the
// last Commit is buffered so the scanner can be rewound to a Mark; Commit
// releases it, keeping only the last keep scalars for Back.
type Scanner struct {
	src  ScalarSource
	keep int

	buf []item
	// position is the index in buf of the next scalar.
	position int
	// end is the position after the last buffered scalar.
	end Position
	err error
	gen uint
}

func New(src ScalarSource, keep int) *Scanner {

	if keep < 0 {
		keep = 0
	}
	return &Scanner{src: src, keep: keep, end: Position{Line: 1, Column: 1}}
}

// fill makes sure buf holds the scalar at position.
func (s *Scanner) fill() error {

	if s.position < len(s.buf) {
		return nil
	}

	if s.err != nil {
		return s.err
	}

	sc, err := s.src.Next()
	if err != nil {
		s.err = err
		return err
	}

	s.buf = append(s.buf, item{s: sc, pos: s.end})
	s.end = s.end.advance(sc)
	return nil
}

// Peek returns the next rune without consuming it. Malformed spans read under
// the Lenient policy show up as utf8.RuneError. The source's io.EOF or decode
// error is returned unchanged.
func (s *Scanner) Peek() (rune, error) {

	if err := s.fill(); err != nil {
		return 0, err
	}
	return s.buf[s.position].s.Rune, nil
}

// Next consumes and returns the next rune.
func (s *Scanner) Next() (rune, error) {

	if err := s.fill(); err != nil {
		return 0, err
	}

	s.position++
	return s.buf[s.position-1].s.Rune, nil
}

// Scalar returns the scalar last consumed by Next.
func (s *Scanner) Scalar() reader.Scalar {

	if s.position == 0 {
		return reader.Scalar{}
	}
	return s.buf[s.position-1].s
}

// NextIf consumes the next rune if it matches pred.
func (s *Scanner) NextIf(pred func(rune) bool) (rune, bool) {

	ru, err := s.Peek()
	if err != nil || !pred(ru) {
		return 0, false
	}

	s.position++
	return ru, true
}

func (s *Scanner) NextIfEq(expected rune) bool {
	_, ok := s.NextIf(func(ru rune) bool { return ru == expected })
	return ok
}

// ExpectString consumes str if the input continues with it and leaves the
// scanner untouched otherwise.
func (s *Scanner) ExpectString(str string) bool {

	m := s.Mark()
	for _, ru := range str {
		if !s.NextIfEq(ru) {
			s.position = m.position
			return false
		}
	}
	return true
}

// SkipWhile consumes runes while pred holds and returns how many it consumed.
func (s *Scanner) SkipWhile(pred func(rune) bool) (n int) {

	for {
		if _, ok := s.NextIf(pred); !ok {
			return
		}
		n++
	}
}

func (s *Scanner) SkipWhitespace() int {
	return s.SkipWhile(unicode.IsSpace)
}

// NextLine consumes up to and including the next line feed and returns the
// consumed text. At the end of the input it returns the rest of the line, or
// io.EOF when nothing is left. Any other source error is returned together
// with the text consumed before it.
func (s *Scanner) NextLine() (string, error) {

	var b strings.Builder
	for {
		ru, err := s.Next()
		if err == io.EOF && b.Len() > 0 {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}

		b.WriteRune(ru)
		if ru == '\n' {
			return b.String(), nil
		}
	}
}

// Preceding returns the buffered text before the next rune: everything
// consumed since the last Commit plus the keep runes retained by it.
// Malformed spans appear as U+FFFD.
func (s *Scanner) Preceding() string {

	var b strings.Builder
	for _, it := range s.buf[:s.position] {
		b.WriteRune(it.s.Rune)
	}
	return b.String()
}

// Position returns the position of the next rune.
func (s *Scanner) Position() Position {

	if s.position < len(s.buf) {
		return s.buf[s.position].pos
	}
	return s.end
}

func (s *Scanner) Mark() Mark {
	return Mark{gen: s.gen, position: s.position}
}

// Restore rewinds to m. Marks taken before the last Commit are stale.
func (s *Scanner) Restore(m Mark) error {

	if m.gen != s.gen {
		return ErrStaleMark
	}
	s.position = m.position
	return nil
}

// Back steps back one rune.
func (s *Scanner) Back() error {

	if s.position == 0 {
		return errors.New(`buffer underrun`)
	}
	s.position--
	return nil
}

// Commit drops buffered scalars before the current position, except the last
// keep ones, and invalidates every Mark.
func (s *Scanner) Commit() {

	drop := s.position - s.keep
	if drop > 0 {
		n := copy(s.buf, s.buf[drop:])
		s.buf = s.buf[:n]
		s.position -= drop
	}
	s.gen++
}

// Done reports whether the source is exhausted and every scalar consumed.
func (s *Scanner) Done() bool {
	_, err := s.Peek()
	return err == io.EOF
}
