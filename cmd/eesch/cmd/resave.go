package cmd

import (
	"fmt"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/library"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// resave loads path and writes it to output, or back to path. want names
// the expected document kind.
func resave(path, output, want string) error {
	doc, err := legacy.Load(path, loadOptions()...)
	if err != nil {
		return err
	}

	switch doc.(type) {
	case *schematic.Schematic:
		if want != "schematic" {
			return fmt.Errorf("%s is a schematic, not a %s", path, want)
		}
	case *library.Library:
		if want != "library" {
			return fmt.Errorf("%s is a library, not a %s", path, want)
		}
	}

	if output == "" {
		output = path
	}
	warnCharset(output)
	if err := legacy.Save(doc, output); err != nil {
		return err
	}
	logger.Printf("saved %s", output)
	return nil
}
