// Package schematic reads and writes KiCad legacy schematic files (.sch,
// "EESchema Schematic File Version N").
package schematic

import (
	"regexp"
	"strconv"
	"strings"
)

// Header is the stamp every legacy schematic starts with.
const Header = "EESchema Schematic File Version"

// Point is a coordinate in mils.
type Point struct {
	X, Y int
}

// Schematic represents a complete legacy schematic file
type Schematic struct {
	Path    string      // Source file, default target of Save
	Version int         // File format version
	Libs    []string    // LIBS: library names
	Layers  []Layer     // EELAYER records
	Descr   *TitleBlock // $Descr block, nil when absent
	Items   []Item      // Drawing items in file order
}

// Layer is an "EELAYER <count> <current>" record.
type Layer struct {
	Count   int
	Current int
}

// TitleBlock is the $Descr block: sheet format and title block.
type TitleBlock struct {
	Paper       string
	Width       int
	Height      int
	Portrait    bool
	Encoding    string
	SheetNumber int
	SheetCount  int
	Title       string
	Date        string
	Rev         string
	Company     string
	Comment1    string
	Comment2    string
	Comment3    string
	Comment4    string
}

// Item is one of *Component, *Sheet, *Bitmap, *Connection, *TextLabel,
// *Wire or *Entry. The set is closed.
type Item interface {
	item()
}

func (*Component) item()  {}
func (*Sheet) item()      {}
func (*Bitmap) item()     {}
func (*Connection) item() {}
func (*TextLabel) item()  {}
func (*Wire) item()       {}
func (*Entry) item()      {}

// Component is a placed symbol ($Comp block).
type Component struct {
	LibName       string
	Ref           string // reference on the L line
	Unit          int
	AlternateBody bool // De Morgan representation
	Timestamp     string
	Position      Point
	HierRefs      []HierRef // AR lines, nil when absent
	Fields        []Field
	Orientation   [4]int // rotation/mirror matrix
}

// HierRef gives the reference and unit of a component in one sheet instance.
type HierRef struct {
	Path string // sheet instance path followed by the component timestamp
	Ref  string
	Part string
}

// Field is an "F n" line of a component.
type Field struct {
	Number      int
	Text        string
	Orientation string // H or V
	Position    Point
	Size        int
	Flags       string // visibility flags, last digit 1 means hidden
	HJustify    string
	VJustify    string
	Italic      bool
	Bold        bool
	Name        string // user field name, empty for default names
}

// Standard field numbers.
const (
	FieldReference = 0
	FieldValue     = 1
	FieldFootprint = 2
	FieldDatasheet = 3
)

// Visible reports whether the field is shown on the sheet.
func (f *Field) Visible() bool {
	return !strings.HasSuffix(f.Flags, "1")
}

// SetVisible shows or hides the field.
func (f *Field) SetVisible(visible bool) {
	flag := "1"
	if visible {
		flag = "0"
	}
	if f.Flags == "" {
		f.Flags = "000" + flag
		return
	}
	f.Flags = f.Flags[:len(f.Flags)-1] + flag
}

// Field returns the field with the given number, or nil.
func (c *Component) Field(number int) *Field {
	for i := range c.Fields {
		if c.Fields[i].Number == number {
			return &c.Fields[i]
		}
	}
	return nil
}

// UserField returns the text of the field with the given name.
func (c *Component) UserField(name string) (string, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Text, true
		}
	}
	return "", false
}

// Reference returns the reference field, falling back to the L line.
func (c *Component) Reference() string {
	if f := c.Field(FieldReference); f != nil && f.Text != "" {
		return f.Text
	}
	return c.Ref
}

// ReferenceAt returns the reference used in the sheet instance whose AR path
// is path, falling back to Reference.
func (c *Component) ReferenceAt(path string) string {
	if hr := c.HierRefAt(path); hr != nil {
		return hr.Ref
	}
	return c.Reference()
}

// HierRefAt returns the AR entry for path, or nil.
func (c *Component) HierRefAt(path string) *HierRef {
	for i := range c.HierRefs {
		if c.HierRefs[i].Path == path {
			return &c.HierRefs[i]
		}
	}
	return nil
}

// Value returns the value field text.
func (c *Component) Value() string {
	if f := c.Field(FieldValue); f != nil {
		return f.Text
	}
	return ""
}

// Footprint returns the footprint field text.
func (c *Component) Footprint() string {
	if f := c.Field(FieldFootprint); f != nil {
		return f.Text
	}
	return ""
}

// Datasheet returns the datasheet field text.
func (c *Component) Datasheet() string {
	if f := c.Field(FieldDatasheet); f != nil {
		return f.Text
	}
	return ""
}

// RefPattern splits a reference designator into its prefix and number.
var RefPattern = regexp.MustCompile(`^([^0-9]+)([0-9]+)`)

// SplitRef returns the prefix and number of an annotated reference such as
// "R12". ok is false for unannotated references like "R?".
func SplitRef(ref string) (prefix string, number int, ok bool) {
	m := RefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// IsPower reports whether the component is a power symbol.
func (c *Component) IsPower() bool {
	return strings.HasPrefix(c.Reference(), "#")
}

// Sheet is a hierarchical sheet ($Sheet block).
type Sheet struct {
	Position     Point
	Size         Point
	Timestamp    string
	Name         string
	NameSize     int
	FileName     string
	FileNameSize int
	Pins         []SheetPin
}

// SheetPin is a hierarchical pin, an "F2".."Fn" line of a sheet.
type SheetPin struct {
	Number   int
	Text     string
	Form     string // I, O, B, T or U
	Side     string // L, R, T or B
	Position Point
	Size     int
}

// Bitmap is an embedded image ($Bitmap block).
type Bitmap struct {
	Position Point
	Scale    float64
	Data     []byte // PNG data
}

// Connection is a junction ("Connection") or a no-connect flag ("NoConn").
type Connection struct {
	Kind     string
	Position Point
}

// TextLabel is a "Text" record: Notes, Label, GLabel or HLabel.
type TextLabel struct {
	Kind        string
	Position    Point
	Orientation int
	Size        int
	Shape       string // GLabel and HLabel only
	Italic      *bool  // nil when the record has no italic token
	Bold        *int   // nil when the record has no bold token
	Text        string
}

// HasShape reports whether the label kind carries a shape token.
func (t *TextLabel) HasShape() bool {
	return t.Kind == "GLabel" || t.Kind == "HLabel"
}

// Wire is a "Wire" record: a wire, bus or graphic line segment.
type Wire struct {
	Kind  string // Wire, Bus or Notes
	Start Point
	End   Point
	Width *int   // custom width, nil when absent
	Style string // custom line style, empty when absent
	Color string // custom "rgb(...)" color, empty when absent
}

// Entry is a wire-to-bus or bus-to-bus entry.
type Entry struct {
	Kind  string // "Wire Line" or "Bus Bus"
	Start Point
	End   Point
}

// Components returns the components in file order.
func (s *Schematic) Components() []*Component {
	var comps []*Component
	for _, it := range s.Items {
		if c, ok := it.(*Component); ok {
			comps = append(comps, c)
		}
	}
	return comps
}

// Sheets returns the sub-sheets in file order.
func (s *Schematic) Sheets() []*Sheet {
	var sheets []*Sheet
	for _, it := range s.Items {
		if sh, ok := it.(*Sheet); ok {
			sheets = append(sheets, sh)
		}
	}
	return sheets
}

// GetComponent returns a component by reference designator
func (s *Schematic) GetComponent(ref string) *Component {
	for _, c := range s.Components() {
		if c.Reference() == ref {
			return c
		}
	}
	return nil
}
