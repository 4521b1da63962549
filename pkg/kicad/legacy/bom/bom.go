// Package bom groups the component instances of a design into bill of
// materials lines.
package bom

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/hierarchy"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// RefPattern splits a reference designator into its prefix and number.
var RefPattern = schematic.RefPattern

// Default marker and section field names, as used on Russian parts lists.
const (
	DefaultGroupField   = "Группа"
	DefaultExcludeField = "Исключён из ПЭ"
	DefaultAdjustField  = "Подбирают при регулировании"
)

// Config selects how entries are grouped and which user fields are reported.
// Field names left empty disable the feature they drive.
type Config struct {
	// GroupBy names user fields that must match, in addition to value and
	// footprint, for two components to share a line.
	GroupBy []string

	// Columns names user fields written as extra columns.
	Columns []string

	// AllUnits keeps every unit of multi-unit parts. By default only unit 1
	// is counted, so a quad op-amp is one part.
	AllUnits bool

	// Group names the user field whose value splits the BOM into sections,
	// each written under a header row.
	Group string

	// Exclude names a marker field. Components carrying it are left out.
	Exclude string

	// Adjust names a marker field for parts selected during adjustment.
	// They never share a line with unmarked parts, and their references
	// carry a "*".
	Adjust string
}

// Line is one BOM row.
type Line struct {
	Group     string // section, empty without Config.Group
	Prefix    string
	Numbers   []int // sorted, unique
	Adjust    bool  // selected during adjustment
	Value     string
	Footprint string
	Fields    map[string]string // user fields listed in Config.Columns

	// Conflicts lists the columns whose values differ between the parts of
	// the line. Their Fields entry joins the distinct values with "; ".
	Conflicts []string
}

// Refs returns the simplified reference list, e.g. "R7, R9-R14", or
// "C8*-C11*" for parts selected during adjustment.
func (l *Line) Refs() string {
	mark := ""
	if l.Adjust {
		mark = "*"
	}
	return FormatRefs(l.Prefix, l.Numbers, mark)
}

// Quantity returns the number of parts on the line.
func (l *Line) Quantity() int {
	return len(l.Numbers)
}

// Build groups entries into lines sorted by section, prefix and lowest
// number. Power symbols never reach a BOM; components that are not annotated
// are an error. Field texts have their ${field} references expanded.
func Build(entries []hierarchy.Entry, cfg Config) ([]*Line, error) {
	byKey := make(map[string]*Line)
	columns := make(map[*Line]map[string][]string)
	var lines []*Line

	for _, e := range entries {
		c := e.Component
		if c.IsPower() {
			continue
		}
		if !cfg.AllUnits && e.Unit != 1 {
			continue
		}
		if hasField(c, cfg.Exclude) {
			continue
		}

		prefix, num, ok := schematic.SplitRef(e.Ref)
		if !ok {
			return nil, fmt.Errorf("component %s in %s is not annotated", e.Ref, e.File)
		}

		field := func(name string) string {
			v, _ := c.UserField(name)
			return Substitute(c, e.Ref, v)
		}
		value := Substitute(c, e.Ref, c.Value())
		footprint := Substitute(c, e.Ref, c.Footprint())
		group := ""
		if cfg.Group != "" {
			group = field(cfg.Group)
		}
		adjust := hasField(c, cfg.Adjust)

		parts := []string{group, prefix, strconv.FormatBool(adjust), value, footprint}
		for _, name := range cfg.GroupBy {
			parts = append(parts, field(name))
		}
		key := strings.Join(parts, "\x00")

		line, ok := byKey[key]
		if !ok {
			line = &Line{
				Group:     group,
				Prefix:    prefix,
				Adjust:    adjust,
				Value:     value,
				Footprint: footprint,
				Fields:    make(map[string]string),
			}
			byKey[key] = line
			columns[line] = make(map[string][]string)
			lines = append(lines, line)
		}
		line.Numbers = append(line.Numbers, num)
		for _, name := range cfg.Columns {
			columns[line][name] = appendDistinct(columns[line][name], field(name))
		}
	}

	for _, l := range lines {
		l.Numbers = uniqueSorted(l.Numbers)
		for _, name := range cfg.Columns {
			values := columns[l][name]
			if len(values) > 1 {
				l.Conflicts = append(l.Conflicts, name)
			}
			if v := strings.Join(nonEmpty(values), "; "); v != "" {
				l.Fields[name] = v
			}
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Prefix != b.Prefix {
			return a.Prefix < b.Prefix
		}
		return a.Numbers[0] < b.Numbers[0]
	})
	return lines, nil
}

func hasField(c *schematic.Component, name string) bool {
	if name == "" {
		return false
	}
	_, ok := c.UserField(name)
	return ok
}

func appendDistinct(values []string, v string) []string {
	for _, have := range values {
		if have == v {
			return values
		}
	}
	return append(values, v)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func uniqueSorted(nums []int) []int {
	sort.Ints(nums)
	out := nums[:0]
	for i, n := range nums {
		if i == 0 || n != nums[i-1] {
			out = append(out, n)
		}
	}
	return out
}

// SimplifyRefs joins reference numbers, collapsing runs of three or more
// into a range: 1,2 gives "R1, R2" and 7,9,10,11 gives "R7, R9-R11".
func SimplifyRefs(prefix string, nums []int) string {
	return FormatRefs(prefix, nums, "")
}

// FormatRefs is SimplifyRefs with mark appended to every reference, as in
// "C8*-C11*".
func FormatRefs(prefix string, nums []int, mark string) string {
	nums = uniqueSorted(append([]int(nil), nums...))
	if len(nums) == 0 {
		return ""
	}
	ref := func(n int) string {
		return prefix + strconv.Itoa(n) + mark
	}

	var parts []string
	start := 0
	for i := 1; i <= len(nums); i++ {
		if i < len(nums) && nums[i] == nums[i-1]+1 {
			continue
		}
		first, last := nums[start], nums[i-1]
		switch i - start {
		case 1:
			parts = append(parts, ref(first))
		case 2:
			parts = append(parts, ref(first), ref(last))
		default:
			parts = append(parts, ref(first)+"-"+ref(last))
		}
		start = i
	}
	return strings.Join(parts, ", ")
}
