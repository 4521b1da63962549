// Package valuevis hides and unhides the value fields of schematic
// components, remembering which values it hid with a marker field.
package valuevis

import "github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"

// HiddenValueMark is the default name of the marker field.
const HiddenValueMark = "Hidden Value"

// Action is what Toggle did to a component.
type Action int

const (
	Unchanged Action = iota
	Hidden
	Shown
)

func (a Action) String() string {
	switch a {
	case Hidden:
		return "hidden"
	case Shown:
		return "shown"
	}
	return "unchanged"
}

// Toggle flips the value visibility of c. A visible value is hidden and a
// marker field named mark is added; a value carrying the marker is shown
// again and the marker removed. Values hidden by other means, and power
// symbols, are left alone. An empty mark means HiddenValueMark.
func Toggle(c *schematic.Component, mark string) Action {
	if mark == "" {
		mark = HiddenValueMark
	}
	if c.IsPower() {
		return Unchanged
	}
	value := c.Field(schematic.FieldValue)
	if value == nil {
		return Unchanged
	}

	if _, marked := c.UserField(mark); marked {
		value.SetVisible(true)
		fields := make([]schematic.Field, 0, len(c.Fields)-1)
		for _, f := range c.Fields {
			if f.Name != mark {
				fields = append(fields, f)
			}
		}
		c.Fields = fields
		return Shown
	}

	if !value.Visible() {
		return Unchanged
	}
	value.SetVisible(false)
	c.Fields = append(c.Fields, markerField(c, mark))
	return Hidden
}

func markerField(c *schematic.Component, mark string) schematic.Field {
	number := 0
	if n := len(c.Fields); n > 0 {
		number = c.Fields[n-1].Number + 1
	}
	return schematic.Field{
		Number:      number,
		Text:        "~",
		Orientation: "H",
		Size:        60,
		Flags:       "0001",
		HJustify:    "C",
		VJustify:    "C",
		Name:        mark,
	}
}

// ToggleSchematic toggles every component of s and reports how many values
// were hidden and shown.
func ToggleSchematic(s *schematic.Schematic, mark string) (hidden, shown int) {
	for _, c := range s.Components() {
		switch Toggle(c, mark) {
		case Hidden:
			hidden++
		case Shown:
			shown++
		}
	}
	return hidden, shown
}
