package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

// ParseFile reads and parses a legacy symbol library file
func ParseFile(filename string, opts ...format.Option) (*Library, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	lib, err := Parse(file, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	lib.Path = filename
	return lib, nil
}

// Parse reads and parses a legacy symbol library from an io.Reader.
func Parse(r io.Reader, opts ...format.Option) (*Library, error) {
	o := format.NewOptions(opts...)
	lr, err := format.NewReader(r, o)
	if err != nil {
		return nil, err
	}

	first, err := lr.Next()
	if err == io.EOF {
		return nil, &format.FormatError{Want: Header}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !strings.HasPrefix(first, Header) {
		return nil, &format.FormatError{Header: first, Want: Header}
	}

	lib := &Library{}
	// Old headers carry a date after the version:
	// EESchema-LIBRARY Version 2.0 24/1/1997-18:9:6
	hdr := format.NewRecord("header", 1, first)
	major, minor, ok := strings.Cut(hdr.Str(2), ".")
	if !ok || hdr.Err() != nil {
		return nil, &format.FormatError{Header: first, Want: Header + " <major>.<minor>"}
	}
	if lib.VersionMajor, err = strconv.Atoi(major); err != nil {
		return nil, &format.FormatError{Header: first, Want: Header + " <major>.<minor>"}
	}
	if lib.VersionMinor, err = strconv.Atoi(minor); err != nil {
		return nil, &format.FormatError{Header: first, Want: Header + " <major>.<minor>"}
	}

	for {
		line, err := lr.Next()
		if err == io.EOF {
			return lib, nil
		}
		if err != nil {
			return nil, err
		}

		switch {
		case strings.HasPrefix(line, "DEF"):
			comp, err := parseComponent(lr, line)
			if err != nil {
				var mErr *format.MalformedRecordError
				if !errors.As(err, &mErr) {
					return nil, err
				}
				if err := o.Malformed(err); err != nil {
					return nil, err
				}
				continue
			}
			lib.Components = append(lib.Components, comp)
		case strings.HasPrefix(line, "#encoding"):
			if toks := format.NewRecord("#encoding", lr.Line(), line).Tokens; len(toks) > 1 {
				lib.Encoding = toks[len(toks)-1]
			}
		case strings.HasPrefix(line, "#End Library"):
			return lib, nil
		}
	}
}

// parseComponent reads a DEF block up to and including ENDDEF. A component
// with a malformed line is skipped as a whole, so the rest of the block is
// still consumed.
func parseComponent(lr *format.Reader, def string) (*Component, error) {
	c := &Component{}
	var firstErr error
	note := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	start := lr.Line()
	inFPList := false
	line := def
	for {
		rec := format.NewRecord("DEF", lr.Line(), line)
		if rec.Len() > 0 {
			tok := rec.Tokens[0]
			switch {
			case inFPList:
				if tok == "$ENDFPLIST" {
					inFPList = false
				} else {
					c.FPList = append(c.FPList, tok)
				}
			case tok == "DEF":
				parseDef(c, rec)
			case tok == "ALIAS":
				c.Aliases = rec.Tokens[1:]
			case isFieldToken(tok):
				rec.Kind = "F"
				c.Fields = append(c.Fields, parseField(rec))
			case tok == "$FPLIST":
				inFPList = true
				c.FPList = []string{}
			default:
				if g := parseGraphic(rec); g != nil {
					c.Graphics = append(c.Graphics, g)
				}
			}
			if err := rec.Err(); err != nil {
				note(err)
			}
		}

		next, err := lr.Next()
		if err == io.EOF {
			return nil, &format.MalformedRecordError{Line: start, Record: "DEF", Reason: "missing ENDDEF"}
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(next, "ENDDEF") {
			break
		}
		line = next
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return c, nil
}

func isFieldToken(tok string) bool {
	if len(tok) < 2 || tok[0] != 'F' {
		return false
	}
	_, err := strconv.Atoi(tok[1:])
	return err == nil
}

func parseDef(c *Component, rec *format.Record) {
	c.Name = rec.Str(1)
	c.Reference = rec.Str(2)
	// token 3 is an unused pin count
	c.TextOffset = rec.Int(4)
	c.DrawPinNumber = yesNo(rec, 5)
	c.DrawPinName = yesNo(rec, 6)
	c.UnitCount = rec.Int(7)

	switch locked := rec.Str(8); locked {
	case "L":
		c.UnitsLocked = true
	case "F", "0":
		c.UnitsLocked = false
	default:
		rec.Fail("bad units locked flag %q", locked)
	}

	if rec.Has(9) {
		switch flag := rec.Str(9); flag {
		case "P":
			c.Power = true
		case "N":
		default:
			rec.Fail("bad option flag %q", flag)
		}
	}
}

func yesNo(rec *format.Record, i int) bool {
	switch v := rec.Str(i); v {
	case "Y":
		return true
	case "N":
	default:
		rec.Fail("token %d: expected Y or N, got %q", i, v)
	}
	return false
}

func parseField(rec *format.Record) Field {
	f := Field{
		Text:        rec.Str(1),
		Position:    Point{X: rec.Int(2), Y: rec.Int(3)},
		Size:        rec.Int(4),
		Orientation: rec.Str(5),
		HJustify:    rec.Str(7),
	}
	// the F prefix is checked by isFieldToken
	f.Number, _ = strconv.Atoi(rec.Tokens[0][1:])

	switch v := rec.Str(6); v {
	case "V":
		f.Visible = true
	case "I":
	default:
		rec.Fail("bad visibility %q", v)
	}

	style := rec.Str(8)
	if style != "" {
		f.VJustify = style[:1]
	}
	if len(style) == 3 {
		f.Italic = style[1] == 'I'
		f.Bold = style[2] == 'B'
	}
	if rec.Has(9) {
		f.Name = rec.Str(9)
	}
	return f
}

// parseGraphic returns nil for lines that are not drawing elements.
func parseGraphic(rec *format.Record) Graphic {
	switch rec.Tokens[0] {
	case "P":
		rec.Kind = "P"
		return parsePolygon(rec)
	case "S":
		rec.Kind = "S"
		return &Rectangle{
			Start:     Point{X: rec.Int(1), Y: rec.Int(2)},
			End:       Point{X: rec.Int(3), Y: rec.Int(4)},
			Unit:      rec.Int(5),
			Convert:   rec.Int(6),
			Thickness: rec.Int(7),
			Fill:      optFill(rec, 8),
		}
	case "C":
		rec.Kind = "C"
		return &Circle{
			Center:    Point{X: rec.Int(1), Y: rec.Int(2)},
			Radius:    rec.Int(3),
			Unit:      rec.Int(4),
			Convert:   rec.Int(5),
			Thickness: rec.Int(6),
			Fill:      optFill(rec, 7),
		}
	case "A":
		rec.Kind = "A"
		return parseArc(rec)
	case "T":
		rec.Kind = "T"
		return parseText(rec)
	case "X":
		rec.Kind = "X"
		p := &Pin{
			Name:         rec.Str(1),
			Number:       rec.Str(2),
			Position:     Point{X: rec.Int(3), Y: rec.Int(4)},
			Length:       rec.Int(5),
			Orientation:  rec.Str(6),
			NumberSize:   rec.Int(7),
			NameSize:     rec.Int(8),
			Unit:         rec.Int(9),
			Convert:      rec.Int(10),
			ElectricType: rec.Str(11),
		}
		if rec.Has(12) {
			p.Shape = rec.Str(12)
		}
		return p
	}
	return nil
}

func optFill(rec *format.Record, i int) string {
	if rec.Has(i) {
		return rec.Str(i)
	}
	return "N"
}

func isFill(tok string) bool {
	return tok == "F" || tok == "f" || tok == "N"
}

func parsePolygon(rec *format.Record) *Polygon {
	p := &Polygon{
		Unit:      rec.Int(2),
		Convert:   rec.Int(3),
		Thickness: rec.Int(4),
		Fill:      "N",
	}
	count := rec.Int(1)
	for i := 0; i < count && rec.Err() == nil; i++ {
		p.Points = append(p.Points, Point{X: rec.Int(5 + 2*i), Y: rec.Int(6 + 2*i)})
	}
	if last := rec.Tokens[rec.Len()-1]; isFill(last) {
		p.Fill = last
	}
	return p
}

func parseArc(rec *format.Record) *Arc {
	a := &Arc{
		Center:     Point{X: rec.Int(1), Y: rec.Int(2)},
		Radius:     rec.Int(3),
		StartAngle: rec.Int(4),
		EndAngle:   rec.Int(5),
		Unit:       rec.Int(6),
		Convert:    rec.Int(7),
		Thickness:  rec.Int(8),
		Fill:       "N",
	}

	// Old libraries do not always store the fill mode, and only newer ones
	// store the end points.
	idx := 9
	if rec.Has(idx) && isFill(rec.Tokens[idx]) {
		a.Fill = rec.Tokens[idx]
		idx++
	}
	if rec.Has(idx) {
		a.Ends = &ArcEnds{
			Start: Point{X: rec.Int(idx), Y: rec.Int(idx + 1)},
			End:   Point{X: rec.Int(idx + 2), Y: rec.Int(idx + 3)},
		}
	}
	return a
}

func parseText(rec *format.Record) *Text {
	t := &Text{
		Angle:    rec.Int(1),
		Position: Point{X: rec.Int(2), Y: rec.Int(3)},
		Size:     rec.Int(4),
		Attr:     rec.Int(5),
		Unit:     rec.Int(6),
		Convert:  rec.Int(7),
		Text:     rec.Str(8),
		HJustify: "C",
		VJustify: "C",
	}

	if rec.Has(9) {
		switch v := rec.Str(9); v {
		case "Italic":
			t.Italic = true
		case "Normal":
		default:
			rec.Fail("bad italic flag %q", v)
		}
		switch v := rec.Str(10); v {
		case "1":
			t.Bold = true
		case "0":
		default:
			rec.Fail("bad bold flag %q", v)
		}
		if rec.Has(11) {
			t.HJustify = rec.Str(11)
			t.VJustify = rec.Str(12)
		}
	}
	return t
}
