package main

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/komkom/utf8stream/reader"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct {
	err        error
	middleRune byte
}

func (r errReader) Read(p []byte) (n int, err error) {
	if len(p) <= 3 {
		panic(`errReader buffer invalid`)
	}

	p[0] = byte('a')
	p[1] = r.middleRune
	p[2] = byte('c')

	return 3, r.err
}

func runWith(stdin io.Reader, args ...string) (code int, stdout, stderr string) {

	var out, errOut bytes.Buffer
	code = run(args, stdin, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_withErrReader(t *testing.T) {

	code, out, _ := runWith(errReader{err: io.EOF, middleRune: byte('b')}, `cat`)
	assert.Equal(t, 0, code)
	assert.Equal(t, `abc`, out)

	code, out, stderr := runWith(errReader{err: io.EOF, middleRune: byte('\255')}, `cat`)
	assert.Equal(t, 1, code)
	assert.Equal(t, `a`, out)
	assert.Equal(t, "utf8stream: cat: pos: 1 invalid lead byte (1 bytes)\n", stderr)

	code, out, _ = runWith(errReader{err: io.EOF, middleRune: byte('\255')}, `--lenient`, `cat`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a�c", out)

	code, out, stderr = runWith(errReader{err: errors.New(`broken pipe`), middleRune: byte('b')}, `cat`)
	assert.Equal(t, 1, code)
	assert.Equal(t, `abc`, out)
	assert.True(t, strings.Contains(stderr, `io error: broken pipe`), stderr)
}

func TestRun_commands(t *testing.T) {

	tests := []struct {
		args   []string
		input  string
		code   int
		stdout string
	}{
		{
			args:   []string{`cat`},
			input:  `test this`,
			stdout: `test this`,
		},
		{
			args:   []string{`-c`, `1`, `cat`},
			input:  `日本語`,
			stdout: `日本語`,
		},
		{
			args:   []string{`cat`},
			input:  ``,
			stdout: ``,
		},
		{
			args:   []string{`chars`},
			input:  "A€",
			stdout: "0\tU+0041\t1\n1\tU+20AC\t3\n",
		},
		{
			args:   []string{`--lenient`, `chars`},
			input:  "A\x80B",
			stdout: "0\tU+0041\t1\n1\tU+FFFD\t1\tinvalid lead byte\n2\tU+0042\t1\n",
		},
		{
			args:   []string{`check`},
			input:  "ok\nstill ok",
			stdout: ``,
		},
		{
			args:   []string{`check`},
			input:  "ok\nx\xC0\x80y\xF0\x9F",
			code:   1,
			stdout: "2:2\t4\toverlong encoding\n2:4\t7\ttruncated sequence at end\n",
		},
		{
			args:   []string{`sanitize`},
			input:  "a\xED\xA0\x80b",
			stdout: "a�b",
		},
		{
			args:   []string{`-c`, `1`, `sanitize`},
			input:  "日\xE2\x82本",
			stdout: "日�本",
		},
		{
			args:  []string{`--chunk-size=-5`, `sanitize`},
			input: `x`,
			code:  1,
		},
		{
			args:  []string{`--chunk-size=-5`, `cat`},
			input: `x`,
			code:  1,
		},
		{
			args: []string{`frobnicate`},
			code: 2,
		},
	}

	for _, ts := range tests {

		code, stdout, stderr := runWith(strings.NewReader(ts.input), ts.args...)
		assert.Equal(t, ts.code, code, "%v: %v", ts.args, stderr)
		assert.Equal(t, ts.stdout, stdout, "%v", ts.args)
	}
}

func TestRun_file(t *testing.T) {

	dir, err := ioutil.TempDir(``, `utf8stream`)
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, `input.txt`)
	require.NoError(t, ioutil.WriteFile(path, []byte("español\n"), 0600))

	code, out, _ := runWith(strings.NewReader(`ignored`), `cat`, path)
	assert.Equal(t, 0, code)
	assert.Equal(t, "español\n", out)

	code, _, stderr := runWith(nil, `cat`, filepath.Join(dir, `missing.txt`))
	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(stderr, `missing.txt`), stderr)
}

func TestRun_envChunkSize(t *testing.T) {

	require.NoError(t, os.Setenv(`UTF8STREAM_CHUNK_SIZE`, `2`))
	defer os.Unsetenv(`UTF8STREAM_CHUNK_SIZE`)

	var c config
	_, err := newApp(&c).Parse([]string{`cat`})
	require.NoError(t, err)
	assert.Equal(t, 2, c.chunkSize)
}

func TestRun_verboseLogsToRunStderr(t *testing.T) {

	global := reader.Logger()
	level := global.GetLevel()
	out := global.Out

	code, _, stderr := runWith(strings.NewReader("a\x80b"), `-v`, `--lenient`, `cat`)
	assert.Equal(t, 0, code)
	assert.True(t, strings.Contains(stderr, `starting`), stderr)
	assert.True(t, strings.Contains(stderr, `replaced malformed utf-8`), stderr)

	code, _, stderr = runWith(strings.NewReader("a\x80b"), `--lenient`, `cat`)
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)

	assert.Equal(t, level, global.GetLevel())
	assert.Equal(t, out, global.Out)
}
