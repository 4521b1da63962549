package schematic

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

func TestParseFixture(t *testing.T) {
	sch, err := ParseFile("testdata/board.sch")
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	if sch.Version != 4 {
		t.Errorf("Expected version 4, got %d", sch.Version)
	}
	if len(sch.Libs) != 2 || sch.Libs[0] != "power" || sch.Libs[1] != "device" {
		t.Errorf("Expected libs [power device], got %v", sch.Libs)
	}
	if len(sch.Layers) != 1 || sch.Layers[0] != (Layer{Count: 26, Current: 0}) {
		t.Errorf("Expected one layer 26/0, got %v", sch.Layers)
	}

	if sch.Descr == nil {
		t.Fatal("Expected title block")
	}
	if sch.Descr.Paper != "A4" || sch.Descr.Width != 11693 || sch.Descr.Height != 8268 {
		t.Errorf("Unexpected sheet format: %+v", sch.Descr)
	}
	if sch.Descr.Portrait {
		t.Error("Expected landscape sheet")
	}
	if sch.Descr.Title != "Test Board" {
		t.Errorf("Expected title 'Test Board', got '%s'", sch.Descr.Title)
	}
	if sch.Descr.Company != "ACME  Labs" {
		t.Errorf("Expected company 'ACME  Labs', got '%s'", sch.Descr.Company)
	}
	if sch.Descr.SheetNumber != 1 || sch.Descr.SheetCount != 2 {
		t.Errorf("Expected sheet 1 of 2, got %d of %d", sch.Descr.SheetNumber, sch.Descr.SheetCount)
	}

	if len(sch.Items) != 16 {
		t.Fatalf("Expected 16 items, got %d", len(sch.Items))
	}
	if n := len(sch.Components()); n != 3 {
		t.Errorf("Expected 3 components, got %d", n)
	}
	if n := len(sch.Sheets()); n != 1 {
		t.Errorf("Expected 1 sheet, got %d", n)
	}
}

func TestParseComponent(t *testing.T) {
	sch, err := ParseFile("testdata/board.sch")
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	r1 := sch.GetComponent("R1")
	if r1 == nil {
		t.Fatal("Component R1 not found")
	}
	if r1.LibName != "Device:R" {
		t.Errorf("Expected lib name 'Device:R', got '%s'", r1.LibName)
	}
	if r1.Timestamp != "5AE8B6C2" {
		t.Errorf("Expected timestamp 5AE8B6C2, got %s", r1.Timestamp)
	}
	if r1.Position != (Point{X: 2650, Y: 1150}) {
		t.Errorf("Unexpected position %+v", r1.Position)
	}
	if r1.Orientation != [4]int{1, 0, 0, -1} {
		t.Errorf("Unexpected orientation %v", r1.Orientation)
	}
	if r1.HierRefs != nil {
		t.Errorf("Expected no AR entries, got %v", r1.HierRefs)
	}
	if r1.Value() != "10k" {
		t.Errorf("Expected value '10k', got '%s'", r1.Value())
	}
	if r1.Footprint() != "Resistor_SMD:R_0603" {
		t.Errorf("Unexpected footprint '%s'", r1.Footprint())
	}
	if r1.Datasheet() != "~" {
		t.Errorf("Expected datasheet '~', got '%s'", r1.Datasheet())
	}
	if tol, ok := r1.UserField("Tolerance"); !ok || tol != "1%" {
		t.Errorf("Expected Tolerance '1%%', got '%s' (%v)", tol, ok)
	}

	fp := r1.Field(FieldFootprint)
	if fp.Orientation != "V" || fp.Visible() {
		t.Errorf("Expected hidden vertical footprint field, got %+v", fp)
	}
	if fp.HJustify != "C" || fp.VJustify != "C" || fp.Italic || fp.Bold {
		t.Errorf("Unexpected footprint field style %+v", fp)
	}

	c1 := sch.GetComponent("C1")
	if c1 == nil {
		t.Fatal("Component C1 not found")
	}
	if c1.Value() != "" {
		t.Errorf("Expected placeholder value to load as empty, got '%s'", c1.Value())
	}
	want := []HierRef{{Path: "/5AE8B800", Ref: "C1", Part: "1"}}
	if diff := cmp.Diff(want, c1.HierRefs); diff != "" {
		t.Errorf("AR entries mismatch (-want +got):\n%s", diff)
	}

	pwr := sch.GetComponent("#PWR01")
	if pwr == nil || !pwr.IsPower() {
		t.Error("Expected #PWR01 to be a power symbol")
	}
	if r1.IsPower() {
		t.Error("R1 is not a power symbol")
	}
}

func TestParseItems(t *testing.T) {
	sch, err := ParseFile("testdata/board.sch")
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	sheet := sch.Sheets()[0]
	wantSheet := &Sheet{
		Position:     Point{X: 4000, Y: 1000},
		Size:         Point{X: 1200, Y: 800},
		Timestamp:    "5AE8B900",
		Name:         "Power",
		NameSize:     50,
		FileName:     "power.sch",
		FileNameSize: 50,
		Pins: []SheetPin{
			{Number: 2, Text: "VIN", Form: "I", Side: "L", Position: Point{X: 4000, Y: 1200}, Size: 50},
		},
	}
	if diff := cmp.Diff(wantSheet, sheet); diff != "" {
		t.Errorf("Sheet mismatch (-want +got):\n%s", diff)
	}

	var texts []*TextLabel
	var wires []*Wire
	var entries []*Entry
	var conns []*Connection
	var bitmap *Bitmap
	for _, it := range sch.Items {
		switch v := it.(type) {
		case *TextLabel:
			texts = append(texts, v)
		case *Wire:
			wires = append(wires, v)
		case *Entry:
			entries = append(entries, v)
		case *Connection:
			conns = append(conns, v)
		case *Bitmap:
			bitmap = v
		}
	}

	if bitmap == nil {
		t.Fatal("Expected a bitmap")
	}
	if !bytes.Equal(bitmap.Data, []byte{0x89, 0x50, 0x4E}) || bitmap.Scale != 1 {
		t.Errorf("Unexpected bitmap %+v", bitmap)
	}

	if len(conns) != 2 || conns[0].Kind != "Connection" || conns[1].Kind != "NoConn" {
		t.Errorf("Unexpected connections %+v", conns)
	}

	if len(texts) != 4 {
		t.Fatalf("Expected 4 texts, got %d", len(texts))
	}
	if texts[0].Text != "Note with  two spaces" || texts[0].Bold == nil || *texts[0].Bold != 12 {
		t.Errorf("Unexpected note %+v", texts[0])
	}
	if texts[1].Shape != "Input" || *texts[1].Italic {
		t.Errorf("Unexpected global label %+v", texts[1])
	}
	if texts[2].Shape != "Output" || !*texts[2].Italic {
		t.Errorf("Unexpected hierarchical label %+v", texts[2])
	}
	if texts[3].Shape != "" {
		t.Errorf("Local labels have no shape, got '%s'", texts[3].Shape)
	}

	if len(wires) != 3 {
		t.Fatalf("Expected 3 wires, got %d", len(wires))
	}
	if wires[0].Width != nil || wires[0].Style != "" || wires[0].Color != "" {
		t.Errorf("Expected plain wire, got %+v", wires[0])
	}
	if wires[1].Width == nil || *wires[1].Width != 12 || wires[1].Style != "dashed" || wires[1].Color != "rgb(255, 0, 0)" {
		t.Errorf("Unexpected custom line %+v", wires[1])
	}
	if wires[2].Kind != "Bus" || wires[2].End != (Point{X: 5500, Y: 2000}) {
		t.Errorf("Unexpected bus %+v", wires[2])
	}

	if len(entries) != 2 || entries[0].Kind != "Wire Line" || entries[1].Kind != "Bus Bus" {
		t.Errorf("Unexpected entries %+v", entries)
	}
}

func TestRoundTripFixture(t *testing.T) {
	original, err := os.ReadFile("testdata/board.sch")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	sch, err := Parse(bytes.NewReader(original))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	var buf bytes.Buffer
	if err := sch.Encode(&buf); err != nil {
		t.Fatalf("Failed to encode schematic: %v", err)
	}
	if diff := cmp.Diff(string(original), buf.String()); diff != "" {
		t.Errorf("Round trip changed file (-want +got):\n%s", diff)
	}

	again, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Failed to parse saved schematic: %v", err)
	}
	if diff := cmp.Diff(sch, again); diff != "" {
		t.Errorf("Reloaded model differs (-want +got):\n%s", diff)
	}
}

func TestSaveAndReload(t *testing.T) {
	sch, err := ParseFile("testdata/board.sch")
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	sch.GetComponent("R1").Field(FieldValue).Text = "4k7"
	out := filepath.Join(t.TempDir(), "out.sch")
	if err := sch.Save(out); err != nil {
		t.Fatalf("Failed to save schematic: %v", err)
	}

	loaded, err := ParseFile(out)
	if err != nil {
		t.Fatalf("Failed to parse saved schematic: %v", err)
	}
	if v := loaded.GetComponent("R1").Value(); v != "4k7" {
		t.Errorf("Expected value '4k7', got '%s'", v)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	sch := &Schematic{Version: 4}
	if err := sch.Save(""); err == nil {
		t.Error("Expected error saving without a path")
	}
}

func TestValuePlaceholder(t *testing.T) {
	input := "EESchema Schematic File Version 4\n" +
		"EELAYER END\n" +
		"$Comp\n" +
		"L Device:R R5\n" +
		"U 1 1 00000001\n" +
		"P 100 100\n" +
		"F 0 \"R5\" H 100 100 50  0000 C CNN\n" +
		"F 1 \"~\" H 100 100 50  0000 C CNN\n" +
		"\t1    100  100 \n" +
		"\t1    0    0    -1  \n" +
		"$EndComp\n" +
		"$EndSCHEMATC\n"

	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}
	c := sch.Components()[0]
	if c.Value() != "" {
		t.Errorf("Expected empty value, got '%s'", c.Value())
	}

	var buf bytes.Buffer
	if err := sch.Encode(&buf); err != nil {
		t.Fatalf("Failed to encode schematic: %v", err)
	}
	if !strings.Contains(buf.String(), "F 1 \"~\" H 100 100 50  0000 C CNN\n") {
		t.Errorf("Expected placeholder to be written back, got:\n%s", buf.String())
	}
	if buf.String() != input {
		t.Errorf("Round trip changed file:\n%s", buf.String())
	}
}

func TestTextVersionGating(t *testing.T) {
	tests := []struct {
		name       string
		version    int
		record     string
		wantItalic bool
		wantBold   bool
		wantErr    bool
	}{
		{"version 1 has no style", 1, "Text Label 100 200 0 60", false, false, false},
		{"version 1 ignores extra tokens", 1, "Text Label 100 200 0 60 ~ 0", false, false, false},
		{"version 2 without style", 2, "Text GLabel 100 200 0 60 Input", false, false, false},
		{"version 2 italic only", 2, "Text Label 100 200 0 60 Italic", true, false, false},
		{"version 2 full", 2, "Text HLabel 100 200 0 60 Output ~ 0", true, true, false},
		{"version 2 bad italic", 2, "Text Label 100 200 0 60 Slanted 0", false, false, true},
		{"version 4 full", 4, "Text Notes 100 200 0 60 ~ 0", true, true, false},
		{"version 4 italic without bold", 4, "Text Notes 100 200 0 60 Italic", true, false, false},
		{"version 4 missing style", 4, "Text Notes 100 200 0 60", false, false, true},
		{"version 4 label missing style", 4, "Text GLabel 100 200 0 60 Input", false, false, true},
		{"version 4 bad italic", 4, "Text Notes 100 200 0 60 Bold 0", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "EESchema Schematic File Version " + string(rune('0'+tt.version)) + "\n" +
				tt.record + "\nhello\n$EndSCHEMATC\n"

			sch, err := Parse(strings.NewReader(input))
			if tt.wantErr {
				var mErr *format.MalformedRecordError
				if !errors.As(err, &mErr) {
					t.Fatalf("Expected MalformedRecordError, got %v", err)
				}
				if mErr.Line != 2 || mErr.Record != "Text" {
					t.Errorf("Expected Text error at line 2, got %+v", mErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to parse schematic: %v", err)
			}
			text := sch.Items[0].(*TextLabel)
			if (text.Italic != nil) != tt.wantItalic {
				t.Errorf("Expected italic present=%v, got %v", tt.wantItalic, text.Italic != nil)
			}
			if (text.Bold != nil) != tt.wantBold {
				t.Errorf("Expected bold present=%v, got %v", tt.wantBold, text.Bold != nil)
			}
			if text.Text != "hello" {
				t.Errorf("Expected text 'hello', got '%s'", text.Text)
			}

			var first, second bytes.Buffer
			if err := sch.Encode(&first); err != nil {
				t.Fatalf("Failed to encode schematic: %v", err)
			}
			again, err := Parse(bytes.NewReader(first.Bytes()))
			if err != nil {
				t.Fatalf("Failed to parse saved schematic: %v", err)
			}
			if err := again.Encode(&second); err != nil {
				t.Fatalf("Failed to encode schematic: %v", err)
			}
			if first.String() != second.String() {
				t.Errorf("Save is not stable:\n%s\n---\n%s", first.String(), second.String())
			}
			if !tt.wantItalic && strings.Contains(first.String(), " ~") {
				t.Errorf("Absent style tokens must not be written:\n%s", first.String())
			}
		})
	}
}

func TestLibsSingleLine(t *testing.T) {
	input := "EESchema Schematic File Version 2\nLIBS:power,device,conn\nEELAYER 25 0\nEELAYER END\n$EndSCHEMATC\n"
	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}
	want := []string{"power", "device", "conn"}
	if diff := cmp.Diff(want, sch.Libs); diff != "" {
		t.Errorf("Libs mismatch (-want +got):\n%s", diff)
	}
}

func TestPortraitDescr(t *testing.T) {
	input := "EESchema Schematic File Version 4\nEELAYER END\n" +
		"$Descr A3 11693 16535 portrait\nencoding utf-8\nSheet 1 1\n$EndDescr\n$EndSCHEMATC\n"
	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}
	if !sch.Descr.Portrait {
		t.Error("Expected portrait sheet")
	}
	var buf bytes.Buffer
	sch.Encode(&buf)
	if !strings.Contains(buf.String(), "$Descr A3 11693 16535 portrait\n") {
		t.Errorf("Expected portrait flag to be saved, got:\n%s", buf.String())
	}
}

func TestBitmapLongData(t *testing.T) {
	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}
	sch := &Schematic{Version: 4, Items: []Item{&Bitmap{Position: Point{X: 10, Y: 20}, Scale: 2.5, Data: data}}}

	var first bytes.Buffer
	if err := sch.Encode(&first); err != nil {
		t.Fatalf("Failed to encode schematic: %v", err)
	}
	loaded, err := Parse(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}
	bm := loaded.Items[0].(*Bitmap)
	if !bytes.Equal(bm.Data, data) {
		t.Errorf("Bitmap data mismatch: %v", bm.Data)
	}
	if bm.Scale != 2.5 {
		t.Errorf("Expected scale 2.5, got %v", bm.Scale)
	}
}

func TestBitmapStrayTerminator(t *testing.T) {
	input := "EESchema Schematic File Version 2\nEELAYER END\n" +
		"$Bitmap\nPos 10 20\nScale 1,000000\nData\nAA BB $EndBitmap CC\nEndData\n$EndBitmap\n$EndSCHEMATC\n"
	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}
	bm := sch.Items[0].(*Bitmap)
	if !bytes.Equal(bm.Data, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Expected data AA BB CC, got % X", bm.Data)
	}
}

func TestParseBadHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("EESchema-LIBRARY Version 2.3\n"))
	var fErr *format.FormatError
	if !errors.As(err, &fErr) {
		t.Fatalf("Expected FormatError, got %v", err)
	}

	_, err = Parse(strings.NewReader(""))
	if !errors.As(err, &fErr) {
		t.Errorf("Expected FormatError for empty input, got %v", err)
	}
}

func TestParseMalformedRecord(t *testing.T) {
	input := "EESchema Schematic File Version 4\nEELAYER END\nConnection ~ 100\nNoConn ~ 200 300\n$EndSCHEMATC\n"

	_, err := Parse(strings.NewReader(input))
	var mErr *format.MalformedRecordError
	if !errors.As(err, &mErr) {
		t.Fatalf("Expected MalformedRecordError, got %v", err)
	}
	if mErr.Line != 3 {
		t.Errorf("Expected line 3, got %d", mErr.Line)
	}

	var warnings []error
	sch, err := Parse(strings.NewReader(input), format.Lenient(func(err error) {
		warnings = append(warnings, err)
	}))
	if err != nil {
		t.Fatalf("Lenient parse failed: %v", err)
	}
	if len(sch.Items) != 1 {
		t.Errorf("Expected the malformed record to be dropped, got %d items", len(sch.Items))
	}
	if len(warnings) != 1 {
		t.Errorf("Expected 1 warning, got %d", len(warnings))
	}
}

func TestParseTruncated(t *testing.T) {
	input := "EESchema Schematic File Version 4\nEELAYER 26 0\nEELAYER END\nConnection ~ 100 200\n"
	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse truncated schematic: %v", err)
	}
	if len(sch.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(sch.Items))
	}

	_, err = Parse(strings.NewReader(input + "$Comp\nL Device:R R1\n"))
	if !errors.Is(err, format.ErrMalformed) {
		t.Errorf("Expected unterminated block to be malformed, got %v", err)
	}
}

func TestParseCRLF(t *testing.T) {
	input := "EESchema Schematic File Version 4\r\nEELAYER END\r\nText Label 100 200 0 60 ~ 0\r\nabc\r\n$EndSCHEMATC\r\n"
	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}
	if text := sch.Items[0].(*TextLabel).Text; text != "abc" {
		t.Errorf("Expected text 'abc', got %q", text)
	}
}

func TestFieldVisibility(t *testing.T) {
	f := Field{Flags: "0000"}
	if !f.Visible() {
		t.Error("Expected visible field")
	}
	f.SetVisible(false)
	if f.Flags != "0001" || f.Visible() {
		t.Errorf("Expected hidden flags 0001, got %s", f.Flags)
	}
	f.SetVisible(true)
	if f.Flags != "0000" {
		t.Errorf("Expected flags 0000, got %s", f.Flags)
	}
}
