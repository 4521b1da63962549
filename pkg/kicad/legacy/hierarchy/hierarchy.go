// Package hierarchy loads a legacy schematic together with all of its
// sub-sheets and resolves per-instance component references.
package hierarchy

import (
	"fmt"
	"path/filepath"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// Node is one sheet instance in a design hierarchy.
type Node struct {
	File      string // sheet file path
	Path      string // instance path, "/" for the root, "/<ts>/.../" below it
	Name      string // sheet name, empty for the root
	Schematic *schematic.Schematic
	Children  []*Node
}

// Load reads the root schematic and every sheet below it, depth first.
// Sheet file names are resolved relative to the file that references them.
// A file instanced several times is parsed once and shared between its
// nodes; a sheet that includes one of its own ancestors is an error.
func Load(root string, opts ...format.Option) (*Node, error) {
	l := &loader{
		opts:   opts,
		cache:  make(map[string]*schematic.Schematic),
		active: make(map[string]bool),
	}
	return l.load(root, "/", "")
}

type loader struct {
	opts   []format.Option
	cache  map[string]*schematic.Schematic
	active map[string]bool // files on the current descent
	chain  []string
}

func (l *loader) load(file, path, name string) (*Node, error) {
	key := normalize(file)
	if l.active[key] {
		chain := append(append([]string(nil), l.chain...), file)
		return nil, &format.CyclicHierarchyError{Chain: chain}
	}

	sch, ok := l.cache[key]
	if !ok {
		var err error
		sch, err = schematic.ParseFile(file, l.opts...)
		if err != nil {
			return nil, err
		}
		l.cache[key] = sch
	}

	l.active[key] = true
	l.chain = append(l.chain, file)
	defer func() {
		delete(l.active, key)
		l.chain = l.chain[:len(l.chain)-1]
	}()

	node := &Node{File: file, Path: path, Name: name, Schematic: sch}
	dir := filepath.Dir(file)
	for _, sheet := range sch.Sheets() {
		if sheet.FileName == "" {
			return nil, fmt.Errorf("sheet %q in %s has no file name", sheet.Name, file)
		}
		childFile := sheet.FileName
		if !filepath.IsAbs(childFile) {
			childFile = filepath.Join(dir, filepath.FromSlash(childFile))
		}
		child, err := l.load(childFile, path+sheet.Timestamp+"/", sheet.Name)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func normalize(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return filepath.Clean(file)
}

// Walk calls fn for n and every node below it, parents before children.
// Returning false from fn skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Files returns every distinct sheet file in first-visit order.
func (n *Node) Files() []string {
	var files []string
	seen := make(map[string]bool)
	n.Walk(func(node *Node) bool {
		key := normalize(node.File)
		if !seen[key] {
			seen[key] = true
			files = append(files, node.File)
		}
		return true
	})
	return files
}

// Schematics returns every distinct loaded schematic in first-visit order.
func (n *Node) Schematics() []*schematic.Schematic {
	var out []*schematic.Schematic
	seen := make(map[*schematic.Schematic]bool)
	n.Walk(func(node *Node) bool {
		if !seen[node.Schematic] {
			seen[node.Schematic] = true
			out = append(out, node.Schematic)
		}
		return true
	})
	return out
}

// Count returns the number of sheet instances, the root included.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
