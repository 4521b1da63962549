package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/library"
)

var libResaveOutput string

var libCmd = &cobra.Command{
	Use:   "lib",
	Short: "KiCad legacy symbol library operations",
	Long:  `Commands for working with KiCad legacy symbol libraries (.lib)`,
}

var libInfoCmd = &cobra.Command{
	Use:   "info <library_file> [symbol]",
	Short: "Show library information",
	Long: `Display information about a KiCad legacy symbol library.

Without symbol argument: lists the symbols in the library
With symbol argument: shows the fields and pins of that symbol (aliases work too)`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLibInfo,
}

var libResaveCmd = &cobra.Command{
	Use:   "resave <library_file>",
	Short: "Load and save a library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resave(args[0], libResaveOutput, "library")
	},
}

func init() {
	rootCmd.AddCommand(libCmd)
	libCmd.AddCommand(libInfoCmd)
	libCmd.AddCommand(libResaveCmd)

	libResaveCmd.Flags().StringVarP(&libResaveOutput, "output", "o", "", "output file (default: overwrite input)")
}

func runLibInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	lib, err := library.ParseFile(filename, loadOptions()...)
	if err != nil {
		return fmt.Errorf("error parsing library: %w", err)
	}

	if len(args) >= 2 {
		return showSymbolDetails(lib, args[1])
	}

	fmt.Printf("Library: %s\n", filename)
	fmt.Printf("Version: %s\n", lib.Version())
	if lib.Encoding != "" {
		fmt.Printf("Encoding: %s\n", lib.Encoding)
	}
	fmt.Printf("Symbols: %d\n", len(lib.Components))
	fmt.Println()

	for _, c := range lib.Components {
		line := fmt.Sprintf("  %-20s %-6s units: %d  pins: %d", c.DisplayName(), c.Reference, c.UnitCount, len(c.Pins()))
		if c.Power {
			line += "  power"
		}
		if len(c.Aliases) > 0 {
			line += "  aliases: " + strings.Join(c.Aliases, ", ")
		}
		fmt.Println(line)
	}
	return nil
}

func showSymbolDetails(lib *library.Library, name string) error {
	c := lib.Component(name)
	if c == nil {
		return fmt.Errorf("symbol '%s' not found", name)
	}

	fmt.Printf("Symbol: %s\n", c.DisplayName())
	fmt.Printf("Reference: %s\n", c.Reference)
	fmt.Printf("Units: %d", c.UnitCount)
	if c.UnitsLocked {
		fmt.Print(" (locked)")
	}
	fmt.Println()
	if len(c.FPList) > 0 {
		fmt.Printf("Footprint filters: %s\n", strings.Join(c.FPList, " "))
	}
	fmt.Println()

	fmt.Println("Fields:")
	for _, f := range c.Fields {
		label := f.Name
		if label == "" {
			label = fieldName(f.Number)
		}
		fmt.Printf("  %s: %s\n", label, f.Text)
	}

	if pins := c.Pins(); len(pins) > 0 {
		fmt.Println()
		fmt.Println("Pins:")
		for _, p := range pins {
			fmt.Printf("  %s (%s): %s %s unit %d\n", p.Number, p.Name, p.ElectricType, p.Shape, p.Unit)
		}
	}

	counts := make(map[string]int)
	for _, g := range c.Graphics {
		switch g.(type) {
		case *library.Polygon:
			counts["polylines"]++
		case *library.Rectangle:
			counts["rectangles"]++
		case *library.Circle:
			counts["circles"]++
		case *library.Arc:
			counts["arcs"]++
		case *library.Text:
			counts["texts"]++
		}
	}
	if len(counts) > 0 {
		fmt.Println()
		fmt.Println("Graphics:")
		for _, kind := range []string{"polylines", "rectangles", "circles", "arcs", "texts"} {
			if counts[kind] > 0 {
				fmt.Printf("  %s: %d\n", kind, counts[kind])
			}
		}
	}
	return nil
}
