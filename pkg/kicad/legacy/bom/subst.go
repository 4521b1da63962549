package bom

import (
	"regexp"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

var substPattern = regexp.MustCompile(`\$\{([^{}]*)\}`)

// maxSubstitutions bounds expansion of fields that refer to each other.
const maxSubstitutions = 32

// fieldText returns the text a ${name} reference expands to. The standard
// fields are reachable by their English and Russian names; anything else is
// a user field, and an unknown name expands to nothing.
func fieldText(c *schematic.Component, ref, name string) string {
	switch name {
	case "Reference", "Обозначение":
		return ref
	case "Value", "Значение":
		return c.Value()
	case "Footprint", "Посад.место":
		return c.Footprint()
	case "Datasheet", "Документация":
		return c.Datasheet()
	}
	v, _ := c.UserField(name)
	return v
}

// Substitute expands ${field} references in text with the fields of c, e.g.
// "${Value} ${Tolerance}". Expanded text is expanded again, so fields may
// refer to fields that refer to others. ref is the reference of the instance
// being reported.
func Substitute(c *schematic.Component, ref, text string) string {
	for i := 0; i < maxSubstitutions; i++ {
		m := substPattern.FindStringSubmatchIndex(text)
		if m == nil {
			break
		}
		name := text[m[2]:m[3]]
		text = text[:m[0]] + fieldText(c, ref, name) + text[m[1]:]
	}
	return text
}
