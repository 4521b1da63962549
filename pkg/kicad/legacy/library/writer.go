package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

// Save writes the library to path, or to l.Path when path is empty. The
// file is replaced atomically.
func (l *Library) Save(path string) error {
	if path == "" {
		path = l.Path
	}
	if path == "" {
		return errors.New("no file name to save library to")
	}
	if err := format.WriteFileAtomic(path, l.Encode); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}
	return nil
}

// Encode writes the library in legacy format.
func (l *Library) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d.%d\n", Header, l.VersionMajor, l.VersionMinor)
	if l.Encoding != "" {
		fmt.Fprintf(bw, "#encoding %s\n", l.Encoding)
	}
	for _, c := range l.Components {
		if err := writeComponent(bw, c, l.hasUnitsLocked()); err != nil {
			return err
		}
	}
	bw.WriteString("#\n#End Library\n")
	return bw.Flush()
}

func writeComponent(w *bufio.Writer, c *Component, unitsLocked bool) error {
	locked := "F"
	switch {
	case c.UnitsLocked:
		locked = "L"
	case !unitsLocked:
		locked = "0"
	}

	fmt.Fprintf(w, "#\n# %s\n#\n", c.DisplayName())
	fmt.Fprintf(w, "DEF %s %s 0 %d %s %s %d %s %s\n",
		c.Name, c.Reference, c.TextOffset, yn(c.DrawPinNumber), yn(c.DrawPinName),
		c.UnitCount, locked, flag(c.Power, "P", "N"))

	for i := range c.Fields {
		writeField(w, &c.Fields[i])
	}
	if len(c.Aliases) > 0 {
		fmt.Fprintf(w, "ALIAS %s\n", strings.Join(c.Aliases, " "))
	}
	if c.FPList != nil {
		w.WriteString("$FPLIST\n")
		for _, fp := range c.FPList {
			fmt.Fprintf(w, " %s\n", fp)
		}
		w.WriteString("$ENDFPLIST\n")
	}

	w.WriteString("DRAW\n")
	for _, g := range c.Graphics {
		if err := writeGraphic(w, g); err != nil {
			return err
		}
	}
	w.WriteString("ENDDRAW\nENDDEF\n")
	return nil
}

func writeField(w *bufio.Writer, f *Field) {
	name := ""
	if f.Name != "" {
		name = fmt.Sprintf(" \"%s\"", f.Name)
	}
	fmt.Fprintf(w, "F%d \"%s\" %d %d %d %s %s %s %s%s%s%s\n",
		f.Number, f.Text, f.Position.X, f.Position.Y, f.Size, f.Orientation,
		flag(f.Visible, "V", "I"), f.HJustify, f.VJustify,
		flag(f.Italic, "I", "N"), flag(f.Bold, "B", "N"), name)
}

func writeGraphic(w *bufio.Writer, g Graphic) error {
	switch v := g.(type) {
	case *Polygon:
		fmt.Fprintf(w, "P %d %d %d %d", len(v.Points), v.Unit, v.Convert, v.Thickness)
		for _, p := range v.Points {
			fmt.Fprintf(w, " %d %d", p.X, p.Y)
		}
		fmt.Fprintf(w, " %s\n", v.Fill)
	case *Rectangle:
		fmt.Fprintf(w, "S %d %d %d %d %d %d %d %s\n",
			v.Start.X, v.Start.Y, v.End.X, v.End.Y, v.Unit, v.Convert, v.Thickness, v.Fill)
	case *Circle:
		fmt.Fprintf(w, "C %d %d %d %d %d %d %s\n",
			v.Center.X, v.Center.Y, v.Radius, v.Unit, v.Convert, v.Thickness, v.Fill)
	case *Arc:
		fmt.Fprintf(w, "A %d %d %d %d %d %d %d %d %s",
			v.Center.X, v.Center.Y, v.Radius, v.StartAngle, v.EndAngle,
			v.Unit, v.Convert, v.Thickness, v.Fill)
		if v.Ends != nil {
			fmt.Fprintf(w, " %d %d %d %d", v.Ends.Start.X, v.Ends.Start.Y, v.Ends.End.X, v.Ends.End.Y)
		}
		w.WriteString("\n")
	case *Text:
		fmt.Fprintf(w, "T %d %d %d %d %d %d %d %s %s %s %s %s\n",
			v.Angle, v.Position.X, v.Position.Y, v.Size, v.Attr, v.Unit, v.Convert,
			textToken(v.Text), flag(v.Italic, "Italic", "Normal"), flag(v.Bold, "1", "0"),
			v.HJustify, v.VJustify)
	case *Pin:
		fmt.Fprintf(w, "X %s %s %d %d %d %s %d %d %d %d %s",
			v.Name, v.Number, v.Position.X, v.Position.Y, v.Length, v.Orientation,
			v.NumberSize, v.NameSize, v.Unit, v.Convert, v.ElectricType)
		if v.Shape != "" {
			fmt.Fprintf(w, " %s", v.Shape)
		}
		w.WriteString("\n")
	default:
		return fmt.Errorf("unknown library graphic %T", g)
	}
	return nil
}

// textToken quotes graphic text that would not survive as a bare token.
func textToken(text string) string {
	if text == "" || strings.ContainsAny(text, "~ ") || strings.Contains(text, "''") {
		return `"` + text + `"`
	}
	return text
}

func yn(b bool) string {
	return flag(b, "Y", "N")
}

func flag(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
