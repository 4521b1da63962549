package format

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Reader yields the lines of a legacy file without their line terminators.
// Both LF and CRLF files are accepted.
type Reader struct {
	br       *bufio.Reader
	line     int
	validate bool
}

// NewReader wraps r, decoding from o.Charset when it is not UTF-8.
func NewReader(r io.Reader, o *Options) (*Reader, error) {
	if o == nil {
		o = NewOptions()
	}

	rd := &Reader{}
	if o.IsUTF8() {
		rd.validate = true
	} else {
		enc, err := htmlindex.Get(o.Charset)
		if err != nil {
			return nil, fmt.Errorf("unknown charset %q: %w", o.Charset, err)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}
	rd.br = bufio.NewReader(r)
	return rd, nil
}

// Next returns the next line, or io.EOF once the input is exhausted.
func (r *Reader) Next() (string, error) {
	s, err := r.br.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	r.line++

	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	if r.line == 1 {
		s = strings.TrimPrefix(s, "\ufeff")
	}
	if r.validate && !utf8.ValidString(s) {
		return "", &EncodingError{Line: r.line, Charset: "UTF-8"}
	}
	return s, nil
}

// Line returns the 1-based number of the line last returned by Next.
func (r *Reader) Line() int {
	return r.line
}
