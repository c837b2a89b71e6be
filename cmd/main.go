package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin"
	"github.com/komkom/utf8stream/reader"
	"github.com/komkom/utf8stream/scanner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type config struct {
	chunkSize int
	lenient   bool
	verbose   bool
	file      string
	logger    logrus.FieldLogger
}

func (c config) options() reader.Options {

	o := reader.Options{ChunkSize: c.chunkSize, Logger: c.logger}
	if c.lenient {
		o.Policy = reader.Lenient
	}
	return o
}

func newApp(c *config) *kingpin.Application {

	app := kingpin.New(`utf8stream`, `Streaming UTF-8 decoder.`)

	app.Flag(`chunk-size`, `bytes requested from the input per read`).
		Short('c').Envar(`UTF8STREAM_CHUNK_SIZE`).Default(`4096`).IntVar(&c.chunkSize)
	app.Flag(`lenient`, `replace malformed input with U+FFFD instead of failing`).
		Short('l').Envar(`UTF8STREAM_LENIENT`).BoolVar(&c.lenient)
	app.Flag(`verbose`, `log debug output to stderr`).Short('v').BoolVar(&c.verbose)

	for _, cmd := range []struct{ name, help string }{
		{`cat`, `copy the decoded text to stdout`},
		{`chars`, `print offset, code point and size of every scalar`},
		{`check`, `report every malformed span with its line and column`},
		{`sanitize`, `copy the input replacing malformed spans with U+FFFD`},
	} {
		app.Command(cmd.name, cmd.help).Arg(`file`, `input file, stdin if omitted`).StringVar(&c.file)
	}

	return app
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {

	var c config
	app := newApp(&c)
	app.Terminate(nil)
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	cmd, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "utf8stream: %v\n", err)
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	if c.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	c.logger = log

	in := stdin
	if c.file != `` && c.file != `-` {
		f, err := os.Open(c.file)
		if err != nil {
			fmt.Fprintf(stderr, "utf8stream: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	log.WithFields(logrus.Fields{
		`command`:    cmd,
		`chunk-size`: c.chunkSize,
		`lenient`:    c.lenient,
	}).Debug(`starting`)

	var ok bool
	switch cmd {
	case `cat`:
		err = cat(in, stdout, c.options())
	case `chars`:
		err = chars(in, stdout, c.options())
	case `check`:
		ok, err = check(in, stdout, c.options())
		if err == nil && !ok {
			return 1
		}
	case `sanitize`:
		err = sanitize(in, stdout, c.options())
	}

	if err != nil {
		fmt.Fprintf(stderr, "utf8stream: %v\n", err)
		return 1
	}
	return 0
}

func cat(in io.Reader, out io.Writer, o reader.Options) error {

	r, err := reader.NewChunkReader(in, o)
	if err != nil {
		return err
	}

	for {
		c, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, `cat`)
		}

		if _, err := out.Write(c.Text); err != nil {
			return errors.Wrap(err, `cat`)
		}
	}
}

func chars(in io.Reader, out io.Writer, o reader.Options) error {

	r, err := reader.NewCharReader(in, o)
	if err != nil {
		return err
	}

	for {
		s, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, `chars`)
		}

		if s.Err != nil {
			fmt.Fprintf(out, "%d\tU+%04X\t%d\t%v\n", s.Offset, s.Rune, s.Size, s.Err.Kind)
			continue
		}
		fmt.Fprintf(out, "%d\tU+%04X\t%d\n", s.Offset, s.Rune, s.Size)
	}
}

func sanitize(in io.Reader, out io.Writer, o reader.Options) error {

	s, err := reader.NewSanitizer(in, o)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, s)
	return errors.Wrap(err, `sanitize`)
}

// check reports malformed spans as "line:column offset kind" and returns false
// if there was any.
func check(in io.Reader, out io.Writer, o reader.Options) (ok bool, err error) {

	o.Policy = reader.Lenient
	r, err := reader.NewCharReader(in, o)
	if err != nil {
		return false, err
	}

	sc := scanner.New(r, 0)
	ok = true
	for {
		pos := sc.Position()
		_, err := sc.Next()
		if err == io.EOF {
			return ok, nil
		}
		if err != nil {
			return false, errors.Wrap(err, `check`)
		}

		if s := sc.Scalar(); s.Err != nil {
			ok = false
			fmt.Fprintf(out, "%d:%d\t%d\t%v\n", pos.Line, pos.Column, s.Offset, s.Err.Kind)
		}
		sc.Commit()
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
