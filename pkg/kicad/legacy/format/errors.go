// Package format holds the pieces shared by the legacy schematic and library
// readers and writers: the error taxonomy, load options, the line reader and
// the record cursor.
package format

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is matched by every *MalformedRecordError via errors.Is.
var ErrMalformed = errors.New("malformed record")

// FormatError reports a file whose first line is not the expected stamp.
type FormatError struct {
	Header string // first line as read
	Want   string // expected stamp
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected file header %q, expected %q", e.Header, e.Want)
}

// EncodingError reports text that is not valid in the expected charset.
type EncodingError struct {
	Line    int
	Charset string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: invalid %s text: %v", e.Line, e.Charset, e.Err)
	}
	return fmt.Sprintf("line %d: invalid %s text", e.Line, e.Charset)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// MalformedRecordError reports a record with missing or unparseable tokens.
type MalformedRecordError struct {
	Line   int    // 1-based line of the offending record
	Record string // record keyword, e.g. "$Comp" or "DEF"
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed %s record: %s", e.Line, e.Record, e.Reason)
}

// Is makes errors.Is(err, ErrMalformed) true for every malformed record.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformed
}

// CyclicHierarchyError reports a sheet that includes one of its ancestors.
type CyclicHierarchyError struct {
	Chain []string // root first, repeated file last
}

func (e *CyclicHierarchyError) Error() string {
	return "cyclic sheet hierarchy: " + strings.Join(e.Chain, " -> ")
}
