// Package legacy loads and saves KiCad legacy schematic and symbol library
// files, picking the document type from the file header.
package legacy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/library"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// Document is a loaded legacy file, either a *schematic.Schematic or a
// *library.Library.
type Document interface {
	Encode(w io.Writer) error
	Save(path string) error
}

var (
	_ Document = (*schematic.Schematic)(nil)
	_ Document = (*library.Library)(nil)
)

// Load reads the file at path as a schematic or a library, depending on its
// first line.
func Load(path string, opts ...format.Option) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	doc, err := Decode(file, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	switch d := doc.(type) {
	case *schematic.Schematic:
		d.Path = path
	case *library.Library:
		d.Path = path
	}
	return doc, nil
}

// Decode is Load for an already opened stream.
func Decode(r io.Reader, opts ...format.Option) (Document, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(64)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))

	switch {
	case bytes.HasPrefix(head, []byte(schematic.Header)):
		sch, err := schematic.Parse(br, opts...)
		if err != nil {
			return nil, err
		}
		return sch, nil
	case bytes.HasPrefix(head, []byte(library.Header)):
		lib, err := library.Parse(br, opts...)
		if err != nil {
			return nil, err
		}
		return lib, nil
	}

	first, _, _ := bytes.Cut(head, []byte("\n"))
	return nil, &format.FormatError{
		Header: string(bytes.TrimRight(first, "\r")),
		Want:   schematic.Header + " or " + library.Header,
	}
}

// Save writes doc to path, or to the path it was loaded from when path is
// empty.
func Save(doc Document, path string) error {
	if doc == nil {
		return errors.New("no document to save")
	}
	return doc.Save(path)
}
