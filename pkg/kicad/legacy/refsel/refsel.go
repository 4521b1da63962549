// Package refsel parses reference selections such as "R1-R5, C3, U2" and
// matches component references against them.
package refsel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// SelectionLexer tokenizes reference selections.
var SelectionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Prefix", Pattern: `[^\s\d,\-]+`},
	{Name: "Punct", Pattern: `[,-]`},
})

var selectionParser = participle.MustBuild[Selection](
	participle.Lexer(SelectionLexer),
	participle.Elide("Whitespace"),
)

// Selection is a comma separated list of references and ranges.
type Selection struct {
	Items []*Item `( @@ ( "," @@ )* )?`
}

// Item is a single reference or an inclusive range. The end of a range may
// omit the prefix: "R1-5" is "R1-R5".
type Item struct {
	From *Ref `@@`
	To   *Ref `( "-" @@ )?`
}

func (it *Item) span() (first, last int) {
	first = it.From.Number()
	last = first
	if it.To != nil {
		last = it.To.Number()
	}
	return first, last
}

// Ref is a reference designator.
type Ref struct {
	Prefix string `@Prefix?`
	Digits string `@Number`
}

// Number returns the numeric part of the reference.
func (r *Ref) Number() int {
	n, _ := strconv.Atoi(r.Digits)
	return n
}

func (r *Ref) String() string {
	return r.Prefix + strconv.Itoa(r.Number())
}

// Parse parses a selection. An empty selection matches every reference.
func Parse(input string) (*Selection, error) {
	sel, err := selectionParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("invalid selection %q: %w", input, err)
	}
	for _, it := range sel.Items {
		if it.From.Prefix == "" {
			return nil, fmt.Errorf("invalid selection %q: %s has no prefix", input, it.From.Digits)
		}
		for _, r := range []*Ref{it.From, it.To} {
			if r == nil {
				continue
			}
			if _, err := strconv.Atoi(r.Digits); err != nil {
				return nil, fmt.Errorf("invalid selection %q: %w", input, err)
			}
		}
		if it.To == nil {
			continue
		}
		if it.To.Prefix == "" {
			it.To.Prefix = it.From.Prefix
		}
		if it.To.Prefix != it.From.Prefix {
			return nil, fmt.Errorf("invalid selection %q: range %s-%s mixes prefixes", input, it.From, it.To)
		}
		if it.To.Number() < it.From.Number() {
			return nil, fmt.Errorf("invalid selection %q: range %s-%s is reversed", input, it.From, it.To)
		}
	}
	return sel, nil
}

// Contains reports whether ref is selected.
func (s *Selection) Contains(ref string) bool {
	if len(s.Items) == 0 {
		return true
	}
	prefix, num, ok := schematic.SplitRef(ref)
	if !ok {
		return false
	}
	for _, it := range s.Items {
		if it.From.Prefix != prefix {
			continue
		}
		first, last := it.span()
		if num >= first && num <= last {
			return true
		}
	}
	return false
}

// Refs expands the selection into single references in written order.
func (s *Selection) Refs() []string {
	var refs []string
	for _, it := range s.Items {
		first, last := it.span()
		for n := first; n <= last; n++ {
			refs = append(refs, it.From.Prefix+strconv.Itoa(n))
		}
	}
	return refs
}

func (s *Selection) String() string {
	parts := make([]string, len(s.Items))
	for i, it := range s.Items {
		parts[i] = it.From.String()
		if it.To != nil {
			parts[i] += "-" + it.To.String()
		}
	}
	return strings.Join(parts, ", ")
}
