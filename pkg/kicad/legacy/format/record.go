package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/kicadtok"
)

// Record is one tokenized line with a sticky error, so a record parser can
// read every token it needs and check Err once at the end.
type Record struct {
	Kind   string
	Line   int
	Tokens []string
	err    error
}

// NewRecord tokenizes raw, which was read at the given line.
func NewRecord(kind string, line int, raw string) *Record {
	return &Record{
		Kind:   kind,
		Line:   line,
		Tokens: kicadtok.SplitLine(raw),
	}
}

// Len returns the number of tokens.
func (r *Record) Len() int {
	return len(r.Tokens)
}

// Has reports whether token i exists.
func (r *Record) Has(i int) bool {
	return i >= 0 && i < len(r.Tokens)
}

// Str returns token i.
func (r *Record) Str(i int) string {
	if !r.Has(i) {
		r.fail("missing token %d", i)
		return ""
	}
	return r.Tokens[i]
}

// Int returns token i parsed as a decimal integer.
func (r *Record) Int(i int) int {
	s := r.Str(i)
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.fail("token %d: %q is not an integer", i, s)
		return 0
	}
	return n
}

// Float returns token i parsed as a float; a decimal comma is accepted.
func (r *Record) Float(i int) float64 {
	s := r.Str(i)
	if r.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		r.fail("token %d: %q is not a number", i, s)
		return 0
	}
	return f
}

// Err returns the first failure as a *MalformedRecordError, or nil.
func (r *Record) Err() error {
	return r.err
}

// Fail records a failure that is not tied to token access.
func (r *Record) Fail(format string, args ...any) {
	r.fail(format, args...)
}

func (r *Record) fail(format string, args ...any) {
	if r.err != nil {
		return
	}
	r.err = &MalformedRecordError{
		Line:   r.Line,
		Record: r.Kind,
		Reason: fmt.Sprintf(format, args...),
	}
}
