// Package library reads and writes KiCad legacy symbol libraries (.lib,
// "EESchema-LIBRARY Version M.m").
package library

import (
	"fmt"
	"strings"

	version "github.com/mcuadros/go-version"
)

// Header is the stamp every legacy library starts with.
const Header = "EESchema-LIBRARY Version"

// Point is a coordinate in mils.
type Point struct {
	X, Y int
}

// Library represents a complete legacy symbol library file
type Library struct {
	Path         string // Source file, default target of Save
	VersionMajor int
	VersionMinor int
	Encoding     string // empty when the file has no #encoding line
	Components   []*Component
}

// Version returns the format version as "major.minor".
func (l *Library) Version() string {
	return fmt.Sprintf("%d.%d", l.VersionMajor, l.VersionMinor)
}

// AtLeast reports whether the library format version is v or newer.
func (l *Library) AtLeast(v string) bool {
	return version.Compare(l.Version(), v, ">=")
}

// hasUnitsLocked reports whether the DEF units_locked token is meaningful.
// Up to version 2.2 it is always written as 0.
func (l *Library) hasUnitsLocked() bool {
	return l.AtLeast("2.3")
}

// Component returns the component with the given name or alias, or nil.
func (l *Library) Component(name string) *Component {
	for _, c := range l.Components {
		if c.Name == name {
			return c
		}
		for _, a := range c.Aliases {
			if a == name {
				return c
			}
		}
	}
	return nil
}

// Component is a symbol definition (DEF ... ENDDEF).
type Component struct {
	Name          string
	Reference     string
	TextOffset    int
	DrawPinNumber bool
	DrawPinName   bool
	UnitCount     int
	UnitsLocked   bool
	Power         bool
	Fields        []Field
	Aliases       []string
	FPList        []string // footprint filters, nil when there is no $FPLIST block
	Graphics      []Graphic
}

// DisplayName returns the name without the leading "~" that marks a
// hidden value.
func (c *Component) DisplayName() string {
	return strings.TrimPrefix(c.Name, "~")
}

// Pins returns the pins of the component in definition order.
func (c *Component) Pins() []*Pin {
	var pins []*Pin
	for _, g := range c.Graphics {
		if p, ok := g.(*Pin); ok {
			pins = append(pins, p)
		}
	}
	return pins
}

// Field is an "Fn" line of a component.
type Field struct {
	Number      int
	Text        string
	Position    Point
	Size        int
	Orientation string // H or V
	Visible     bool
	HJustify    string
	VJustify    string
	Italic      bool
	Bold        bool
	Name        string // user field name, empty for default names
}

// Graphic is one of *Polygon, *Rectangle, *Circle, *Arc, *Text or *Pin.
// The set is closed.
type Graphic interface {
	// Body returns the unit and De Morgan representation the element
	// belongs to; 0 means common to all.
	Body() (unit, convert int)
	graphic()
}

// Polygon is a "P" polyline.
type Polygon struct {
	Unit      int
	Convert   int
	Thickness int
	Points    []Point
	Fill      string // F, f or N
}

// Rectangle is an "S" rectangle.
type Rectangle struct {
	Start     Point
	End       Point
	Unit      int
	Convert   int
	Thickness int
	Fill      string
}

// Circle is a "C" circle.
type Circle struct {
	Center    Point
	Radius    int
	Unit      int
	Convert   int
	Thickness int
	Fill      string
}

// Arc is an "A" arc. Angles are in tenths of a degree.
type Arc struct {
	Center     Point
	Radius     int
	StartAngle int
	EndAngle   int
	Unit       int
	Convert    int
	Thickness  int
	Fill       string
	Ends       *ArcEnds // nil in libraries that do not store end points
}

// ArcEnds holds the explicit end points of an arc.
type ArcEnds struct {
	Start Point
	End   Point
}

// Text is a "T" graphic text.
type Text struct {
	Angle    int
	Position Point
	Size     int
	Attr     int
	Unit     int
	Convert  int
	Text     string
	Italic   bool
	Bold     bool
	HJustify string
	VJustify string
}

// Pin is an "X" pin.
type Pin struct {
	Name         string
	Number       string
	Position     Point
	Length       int
	Orientation  string // U, D, L or R
	NumberSize   int
	NameSize     int
	Unit         int
	Convert      int
	ElectricType string
	Shape        string // empty when absent
}

func (*Polygon) graphic()   {}
func (*Rectangle) graphic() {}
func (*Circle) graphic()    {}
func (*Arc) graphic()       {}
func (*Text) graphic()      {}
func (*Pin) graphic()       {}

func (g *Polygon) Body() (int, int)   { return g.Unit, g.Convert }
func (g *Rectangle) Body() (int, int) { return g.Unit, g.Convert }
func (g *Circle) Body() (int, int)    { return g.Unit, g.Convert }
func (g *Arc) Body() (int, int)       { return g.Unit, g.Convert }
func (g *Text) Body() (int, int)      { return g.Unit, g.Convert }
func (g *Pin) Body() (int, int)       { return g.Unit, g.Convert }
