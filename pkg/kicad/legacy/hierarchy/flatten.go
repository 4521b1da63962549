package hierarchy

import (
	"strconv"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// Entry is one placed component instance.
type Entry struct {
	Ref       string // reference in this instance
	Unit      int
	Path      string // AR path of the instance, e.g. "/5AE8B900/5AE8BA00"
	File      string // sheet file the component is stored in
	Component *schematic.Component
}

// Flatten lists every non-power component instance of the design in
// depth-first sheet order. Each instance gets the reference stored under its
// own AR path, or the component's reference when there is none.
func Flatten(root *Node) []Entry {
	var out []Entry
	root.Walk(func(n *Node) bool {
		for _, c := range n.Schematic.Components() {
			if c.IsPower() {
				continue
			}
			path := n.Path + c.Timestamp
			e := Entry{
				Ref:       c.Reference(),
				Unit:      c.Unit,
				Path:      path,
				File:      n.File,
				Component: c,
			}
			if hr := c.HierRefAt(path); hr != nil {
				e.Ref = hr.Ref
				e.Unit = partUnit(hr.Part, c.Unit)
			}
			out = append(out, e)
		}
		return true
	})
	return out
}

// FlattenSchematic lists the component instances of a single file without
// loading its sub-sheets. A component with AR lines yields one entry per
// line; other components yield one entry with their own reference.
func FlattenSchematic(s *schematic.Schematic) []Entry {
	var out []Entry
	for _, c := range s.Components() {
		if c.IsPower() {
			continue
		}
		if len(c.HierRefs) == 0 {
			out = append(out, Entry{
				Ref:       c.Reference(),
				Unit:      c.Unit,
				Path:      "/" + c.Timestamp,
				File:      s.Path,
				Component: c,
			})
			continue
		}
		for _, hr := range c.HierRefs {
			out = append(out, Entry{
				Ref:       hr.Ref,
				Unit:      partUnit(hr.Part, c.Unit),
				Path:      hr.Path,
				File:      s.Path,
				Component: c,
			})
		}
	}
	return out
}

func partUnit(part string, fallback int) int {
	if n, err := strconv.Atoi(part); err == nil {
		return n
	}
	return fallback
}
