package schematic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

// ParseFile reads and parses a legacy schematic file
func ParseFile(filename string, opts ...format.Option) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sch, err := Parse(file, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	sch.Path = filename
	return sch, nil
}

// Parse reads and parses a legacy schematic from an io.Reader.
//
// Reading stops at $EndSCHEMATC; a file that ends before it yields the items
// read so far.
func Parse(r io.Reader, opts ...format.Option) (*Schematic, error) {
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

	hdr := format.NewRecord("header", 1, first)
	version := hdr.Int(hdr.Len() - 1)
	if hdr.Err() != nil {
		return nil, &format.FormatError{Header: first, Want: Header + " <n>"}
	}

	p := &parser{
		r:    lr,
		opts: o,
		sch:  &Schematic{Version: version},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.sch, nil
}

type parser struct {
	r    *format.Reader
	opts *format.Options
	sch  *Schematic
}

// block is a $Foo ... $EndFoo group without its terminator line.
type block struct {
	start int
	lines []string
}

func (b *block) records(kind string) []*format.Record {
	recs := make([]*format.Record, 0, len(b.lines))
	for i, line := range b.lines {
		rec := format.NewRecord(kind, b.start+i, line)
		if rec.Len() == 0 {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func (p *parser) run() error {
	for {
		line, err := p.r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case strings.HasPrefix(line, "$EndSCHEMATC"):
			return nil
		case strings.HasPrefix(line, "$End"):
			// stray terminator, see parseBitmap
		case strings.HasPrefix(line, "$"):
			b, err := p.block(line)
			if err != nil {
				if err := p.malformed(err); err != nil {
					return err
				}
				continue
			}
			if err := p.dispatch(b); err != nil {
				return err
			}
		case strings.HasPrefix(line, "Connection"), strings.HasPrefix(line, "NoConn"):
			item, err := parseConnection(format.NewRecord("Connection", p.r.Line(), line))
			if err := p.add(item, err); err != nil {
				return err
			}
		case strings.HasPrefix(line, "Text"):
			if err := p.twoLine("Text", line, p.parseText); err != nil {
				return err
			}
		case strings.HasPrefix(line, "Wire"):
			if err := p.twoLine("Wire", line, parseWire); err != nil {
				return err
			}
		case strings.HasPrefix(line, "Entry"):
			if err := p.twoLine("Entry", line, parseEntry); err != nil {
				return err
			}
		case strings.HasPrefix(line, "LIBS:"):
			libs := strings.TrimPrefix(line, "LIBS:")
			// Early versions list all libraries on one line.
			p.sch.Libs = append(p.sch.Libs, strings.Split(libs, ",")...)
		case strings.HasPrefix(line, "EELAYER") && !strings.Contains(line, "END"):
			rec := format.NewRecord("EELAYER", p.r.Line(), line)
			layer := Layer{Count: rec.Int(1), Current: rec.Int(2)}
			if err := rec.Err(); err != nil {
				if err := p.malformed(err); err != nil {
					return err
				}
				continue
			}
			p.sch.Layers = append(p.sch.Layers, layer)
		}
	}
}

// block collects lines from the opening line up to the next $End line.
func (p *parser) block(first string) (*block, error) {
	b := &block{start: p.r.Line(), lines: []string{first}}
	for {
		line, err := p.r.Next()
		if err == io.EOF {
			kind := strings.Fields(first)[0]
			return nil, &format.MalformedRecordError{
				Line:   b.start,
				Record: kind,
				Reason: "block is not terminated",
			}
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, "$End") {
			return b, nil
		}
		b.lines = append(b.lines, line)
	}
}

func (p *parser) dispatch(b *block) error {
	head := b.lines[0]
	switch {
	case strings.HasPrefix(head, "$Descr"):
		descr, err := parseDescr(b)
		if err != nil {
			return p.malformed(err)
		}
		p.sch.Descr = descr
		return nil
	case strings.HasPrefix(head, "$Comp"):
		item, err := parseComponent(b)
		return p.add(item, err)
	case strings.HasPrefix(head, "$Sheet"):
		item, err := parseSheet(b)
		return p.add(item, err)
	case strings.HasPrefix(head, "$Bitmap"):
		item, err := parseBitmap(b)
		return p.add(item, err)
	}
	return nil
}

// twoLine parses a record whose payload continues on the following line.
func (p *parser) twoLine(kind, line string, parse func(*format.Record, string) (Item, error)) error {
	rec := format.NewRecord(kind, p.r.Line(), line)
	next, err := p.r.Next()
	if err == io.EOF {
		rec.Fail("missing second line")
		return p.malformed(rec.Err())
	}
	if err != nil {
		return err
	}
	item, err := parse(rec, next)
	return p.add(item, err)
}

func (p *parser) add(item Item, err error) error {
	if err != nil {
		return p.malformed(err)
	}
	p.sch.Items = append(p.sch.Items, item)
	return nil
}

// malformed routes record errors through the leniency setting; other errors
// pass unchanged.
func (p *parser) malformed(err error) error {
	var mErr *format.MalformedRecordError
	if errors.As(err, &mErr) {
		return p.opts.Malformed(err)
	}
	return err
}

func parseDescr(b *block) (*TitleBlock, error) {
	d := &TitleBlock{}
	for _, rec := range b.records("$Descr") {
		switch rec.Tokens[0] {
		case "$Descr":
			d.Paper = rec.Str(1)
			d.Width = rec.Int(2)
			d.Height = rec.Int(3)
			d.Portrait = rec.Len() > 4 && rec.Tokens[rec.Len()-1] == "portrait"
		case "encoding":
			d.Encoding = rec.Str(1)
		case "Sheet":
			d.SheetNumber = rec.Int(1)
			d.SheetCount = rec.Int(2)
		case "Title":
			d.Title = rec.Str(1)
		case "Date":
			d.Date = rec.Str(1)
		case "Rev":
			d.Rev = rec.Str(1)
		case "Comp":
			d.Company = rec.Str(1)
		case "Comment1":
			d.Comment1 = rec.Str(1)
		case "Comment2":
			d.Comment2 = rec.Str(1)
		case "Comment3":
			d.Comment3 = rec.Str(1)
		case "Comment4":
			d.Comment4 = rec.Str(1)
		}
		if err := rec.Err(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func parseComponent(b *block) (Item, error) {
	c := &Component{}
	indented := 0
	for i, line := range b.lines {
		rec := format.NewRecord("$Comp", b.start+i, line)
		if rec.Len() == 0 {
			continue
		}

		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ") {
			// The first indented line repeats unit and position; the
			// second holds the orientation matrix.
			indented++
			rec = format.NewRecord("$Comp", b.start+i, strings.TrimLeft(line, "\t "))
			if indented > 1 || rec.Len() >= 4 {
				for j := range c.Orientation {
					c.Orientation[j] = rec.Int(j)
				}
			}
			if err := rec.Err(); err != nil {
				return nil, err
			}
			continue
		}

		switch rec.Tokens[0] {
		case "L":
			c.LibName = rec.Str(1)
			c.Ref = rec.Str(2)
		case "U":
			c.Unit = rec.Int(1)
			c.AlternateBody = rec.Int(2) == 2
			c.Timestamp = rec.Str(3)
		case "P":
			c.Position = Point{X: rec.Int(1), Y: rec.Int(2)}
		case "AR":
			hr := HierRef{
				Path: arValue(rec.Str(1), "Path="),
				Ref:  arValue(rec.Str(2), "Ref="),
			}
			if rec.Has(3) {
				hr.Part = arValue(rec.Str(3), "Part=")
			}
			c.HierRefs = append(c.HierRefs, hr)
		case "F":
			f := parseField(rec)
			c.Fields = append(c.Fields, f)
		}
		if err := rec.Err(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// arValue extracts the value of a key="value" token of an AR line.
func arValue(token, key string) string {
	if i := strings.LastIndex(token, key); i >= 0 {
		token = token[i+len(key):]
	}
	return strings.Trim(token, `"`)
}

func parseField(rec *format.Record) Field {
	f := Field{
		Number:      rec.Int(1),
		Text:        rec.Str(2),
		Orientation: rec.Str(3),
		Position:    Point{X: rec.Int(4), Y: rec.Int(5)},
		Size:        rec.Int(6),
		Flags:       rec.Str(7),
		HJustify:    rec.Str(8),
	}

	// Vertical justification, optionally followed by italic and bold flags.
	style := rec.Str(9)
	if style != "" {
		f.VJustify = style[:1]
	}
	if len(style) == 3 {
		f.Italic = style[1] == 'I'
		f.Bold = style[2] == 'B'
	}
	if rec.Has(10) {
		f.Name = rec.Str(10)
	}

	if f.Number == FieldValue && f.Text == "~" {
		f.Text = ""
	}
	return f
}

func parseSheet(b *block) (Item, error) {
	s := &Sheet{}
	for _, rec := range b.records("$Sheet") {
		tok := rec.Tokens[0]
		switch {
		case tok == "S":
			s.Position = Point{X: rec.Int(1), Y: rec.Int(2)}
			s.Size = Point{X: rec.Int(3), Y: rec.Int(4)}
		case tok == "U":
			s.Timestamp = rec.Str(1)
		case strings.HasPrefix(tok, "F"):
			n, err := strconv.Atoi(tok[1:])
			if err != nil {
				rec.Fail("bad field number %q", tok)
				break
			}
			switch {
			case n == 0:
				s.Name = rec.Str(1)
				s.NameSize = rec.Int(2)
			case n == 1:
				s.FileName = rec.Str(1)
				s.FileNameSize = rec.Int(2)
			default:
				s.Pins = append(s.Pins, SheetPin{
					Number:   n,
					Text:     rec.Str(1),
					Form:     rec.Str(2),
					Side:     rec.Str(3),
					Position: Point{X: rec.Int(4), Y: rec.Int(5)},
					Size:     rec.Int(6),
				})
			}
		}
		if err := rec.Err(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseBitmap(b *block) (Item, error) {
	bm := &Bitmap{}
	inData := false
	for i, line := range b.lines {
		rec := format.NewRecord("$Bitmap", b.start+i, strings.TrimRight(line, " "))
		if inData {
			if strings.HasPrefix(line, "EndData") {
				inData = false
				continue
			}
			for _, tok := range rec.Tokens {
				// Some Eeschema versions leak the block terminator into
				// the data.
				if tok == "$EndBitmap" {
					continue
				}
				v, err := strconv.ParseUint(tok, 16, 8)
				if err != nil {
					rec.Fail("bad data byte %q", tok)
					return nil, rec.Err()
				}
				bm.Data = append(bm.Data, byte(v))
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "Pos"):
			bm.Position = Point{X: rec.Int(1), Y: rec.Int(2)}
		case strings.HasPrefix(line, "Scale"):
			bm.Scale = rec.Float(1)
		case strings.HasPrefix(line, "Data"):
			inData = true
		}
		if err := rec.Err(); err != nil {
			return nil, err
		}
	}
	return bm, nil
}

func parseConnection(rec *format.Record) (Item, error) {
	c := &Connection{
		Kind:     rec.Str(0),
		Position: Point{X: rec.Int(2), Y: rec.Int(3)},
	}
	if err := rec.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// parseText reads a Text record. Italic and bold tokens depend on the file
// version: version 1 has neither, version 2 has them only on some labels and
// later versions always have the italic token.
func (p *parser) parseText(rec *format.Record, text string) (Item, error) {
	t := &TextLabel{
		Kind:        rec.Str(1),
		Position:    Point{X: rec.Int(2), Y: rec.Int(3)},
		Orientation: rec.Int(4),
		Size:        rec.Int(5),
		Text:        text,
	}

	idx := 5
	if t.HasShape() {
		t.Shape = rec.Str(6)
		idx++
	}
	if p.sch.Version > 1 {
		// From version 3 on the italic token is always written.
		if p.sch.Version > 2 || rec.Has(idx+1) {
			var italic bool
			switch v := rec.Str(idx + 1); v {
			case "Italic":
				italic = true
			case "~":
			default:
				if rec.Err() == nil {
					rec.Fail("bad italic flag %q", v)
				}
			}
			t.Italic = &italic
			idx++
		}
		if rec.Has(idx + 1) {
			bold := rec.Int(idx + 1)
			t.Bold = &bold
		}
	}

	if err := rec.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseWire(rec *format.Record, coords string) (Item, error) {
	w := &Wire{Kind: rec.Str(1)}

	// Custom options are optional but always in this order.
	custom := rec.Tokens[min(3, rec.Len()):]
	if len(custom) > 1 && custom[0] == "width" {
		width, err := strconv.Atoi(custom[1])
		if err != nil {
			rec.Fail("bad width %q", custom[1])
		}
		w.Width = &width
		custom = custom[2:]
	}
	if len(custom) > 1 && custom[0] == "style" {
		w.Style = custom[1]
		custom = custom[2:]
	}
	if len(custom) > 0 && strings.HasPrefix(custom[0], "rgb") {
		w.Color = strings.Join(custom, " ")
	}

	var err error
	w.Start, w.End, err = parseSegment(rec, coords)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func parseEntry(rec *format.Record, coords string) (Item, error) {
	e := &Entry{Kind: rec.Str(1) + " " + rec.Str(2)}
	var err error
	e.Start, e.End, err = parseSegment(rec, coords)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// parseSegment reads the indented coordinate line following Wire and Entry.
func parseSegment(head *format.Record, coords string) (Point, Point, error) {
	if err := head.Err(); err != nil {
		return Point{}, Point{}, err
	}
	rec := format.NewRecord(head.Kind, head.Line+1, strings.TrimLeft(coords, "\t "))
	start := Point{X: rec.Int(0), Y: rec.Int(1)}
	end := Point{X: rec.Int(2), Y: rec.Int(3)}
	return start, end, rec.Err()
}
