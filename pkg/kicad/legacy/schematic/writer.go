package schematic

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

// Save writes the schematic to path, or to s.Path when path is empty. The
// file is replaced atomically.
func (s *Schematic) Save(path string) error {
	if path == "" {
		path = s.Path
	}
	if path == "" {
		return errors.New("no file name to save schematic to")
	}
	if err := format.WriteFileAtomic(path, s.Encode); err != nil {
		return fmt.Errorf("failed to save schematic: %w", err)
	}
	return nil
}

// Encode writes the schematic in legacy format. Output of a parsed file is
// stable: encoding, parsing and encoding again yields the same bytes.
func (s *Schematic) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d\n", Header, s.Version)
	for _, lib := range s.Libs {
		fmt.Fprintf(bw, "LIBS:%s\n", lib)
	}
	for _, l := range s.Layers {
		fmt.Fprintf(bw, "EELAYER %d %d\n", l.Count, l.Current)
	}
	bw.WriteString("EELAYER END\n")

	if s.Descr != nil {
		writeDescr(bw, s.Descr)
	}

	for _, it := range s.Items {
		switch v := it.(type) {
		case *Component:
			writeComponent(bw, v)
		case *Sheet:
			writeSheet(bw, v)
		case *Bitmap:
			writeBitmap(bw, v)
		case *Connection:
			fmt.Fprintf(bw, "%s ~ %-4d %-4d\n", v.Kind, v.Position.X, v.Position.Y)
		case *TextLabel:
			writeText(bw, v)
		case *Wire:
			writeWire(bw, v)
		case *Entry:
			fmt.Fprintf(bw, "Entry %s\n", v.Kind)
			writeSegment(bw, v.Start, v.End)
		default:
			return fmt.Errorf("unknown schematic item %T", it)
		}
	}

	bw.WriteString("$EndSCHEMATC\n")
	return bw.Flush()
}

func writeDescr(w *bufio.Writer, d *TitleBlock) {
	portrait := ""
	if d.Portrait {
		portrait = " portrait"
	}
	fmt.Fprintf(w, "$Descr %s %d %d%s\n", d.Paper, d.Width, d.Height, portrait)
	fmt.Fprintf(w, "encoding %s\n", d.Encoding)
	fmt.Fprintf(w, "Sheet %d %d\n", d.SheetNumber, d.SheetCount)
	writeQuoted(w, "Title", d.Title)
	writeQuoted(w, "Date", d.Date)
	writeQuoted(w, "Rev", d.Rev)
	writeQuoted(w, "Comp", d.Company)
	writeQuoted(w, "Comment1", d.Comment1)
	writeQuoted(w, "Comment2", d.Comment2)
	writeQuoted(w, "Comment3", d.Comment3)
	writeQuoted(w, "Comment4", d.Comment4)
	w.WriteString("$EndDescr\n")
}

// writeQuoted writes a title block line. Text is written as stored, escapes
// included.
func writeQuoted(w *bufio.Writer, key, text string) {
	fmt.Fprintf(w, "%s \"%s\"\n", key, text)
}

func writeComponent(w *bufio.Writer, c *Component) {
	convert := 1
	if c.AlternateBody {
		convert = 2
	}
	w.WriteString("$Comp\n")
	fmt.Fprintf(w, "L %s %s\n", c.LibName, c.Ref)
	fmt.Fprintf(w, "U %d %d %s\n", c.Unit, convert, c.Timestamp)
	fmt.Fprintf(w, "P %d %d\n", c.Position.X, c.Position.Y)
	for _, hr := range c.HierRefs {
		fmt.Fprintf(w, "AR Path=\"%s\" Ref=\"%s\"  Part=\"%s\" \n", hr.Path, hr.Ref, hr.Part)
	}
	for i := range c.Fields {
		writeField(w, &c.Fields[i])
	}
	fmt.Fprintf(w, "\t%-4d %-4d %-4d\n", c.Unit, c.Position.X, c.Position.Y)
	m := c.Orientation
	fmt.Fprintf(w, "\t%-4d %-4d %-4d %-4d\n", m[0], m[1], m[2], m[3])
	w.WriteString("$EndComp\n")
}

func writeField(w *bufio.Writer, f *Field) {
	text := f.Text
	if f.Number == FieldValue && text == "" {
		text = "~"
	}
	italic, bold := "N", "N"
	if f.Italic {
		italic = "I"
	}
	if f.Bold {
		bold = "B"
	}
	name := ""
	if f.Name != "" {
		name = fmt.Sprintf(" \"%s\"", f.Name)
	}
	fmt.Fprintf(w, "F %d \"%s\" %s %-3d %-3d %-3d %s %s %s%s%s%s\n",
		f.Number, text, f.Orientation, f.Position.X, f.Position.Y, f.Size,
		f.Flags, f.HJustify, f.VJustify, italic, bold, name)
}

func writeSheet(w *bufio.Writer, s *Sheet) {
	w.WriteString("$Sheet\n")
	fmt.Fprintf(w, "S %-4d %-4d %-4d %-4d\n", s.Position.X, s.Position.Y, s.Size.X, s.Size.Y)
	fmt.Fprintf(w, "U %s\n", s.Timestamp)
	fmt.Fprintf(w, "F0 \"%s\" %d\n", s.Name, s.NameSize)
	fmt.Fprintf(w, "F1 \"%s\" %d\n", s.FileName, s.FileNameSize)
	for _, p := range s.Pins {
		fmt.Fprintf(w, "F%d \"%s\" %s %s %-3d %-3d %-3d\n",
			p.Number, p.Text, p.Form, p.Side, p.Position.X, p.Position.Y, p.Size)
	}
	w.WriteString("$EndSheet\n")
}

func writeBitmap(w *bufio.Writer, b *Bitmap) {
	w.WriteString("$Bitmap\n")
	fmt.Fprintf(w, "Pos %-4d %-4d\n", b.Position.X, b.Position.Y)
	fmt.Fprintf(w, "Scale %.6f\n", b.Scale)
	w.WriteString("Data\n")
	for i, v := range b.Data {
		fmt.Fprintf(w, "%02X ", v)
		if (i+1)%32 == 0 {
			w.WriteString("\n")
		}
	}
	w.WriteString("\nEndData\n")
	w.WriteString("$EndBitmap\n")
}

func writeText(w *bufio.Writer, t *TextLabel) {
	fmt.Fprintf(w, "Text %s %-4d %-4d %-4d %-4d", t.Kind, t.Position.X, t.Position.Y, t.Orientation, t.Size)
	if t.HasShape() {
		fmt.Fprintf(w, " %s", t.Shape)
	}
	if t.Italic != nil {
		if *t.Italic {
			w.WriteString(" Italic")
		} else {
			w.WriteString(" ~")
		}
	}
	if t.Bold != nil {
		fmt.Fprintf(w, " %d", *t.Bold)
	}
	fmt.Fprintf(w, "\n%s\n", t.Text)
}

func writeWire(w *bufio.Writer, wr *Wire) {
	fmt.Fprintf(w, "Wire %s Line", wr.Kind)
	if wr.Width != nil {
		fmt.Fprintf(w, " width %d", *wr.Width)
	}
	if wr.Style != "" {
		fmt.Fprintf(w, " style %s", wr.Style)
	}
	if wr.Color != "" {
		fmt.Fprintf(w, " %s", wr.Color)
	}
	w.WriteString("\n")
	writeSegment(w, wr.Start, wr.End)
}

func writeSegment(w *bufio.Writer, start, end Point) {
	fmt.Fprintf(w, "\t%-4d %-4d %-4d %-4d\n", start.X, start.Y, end.X, end.Y)
}
