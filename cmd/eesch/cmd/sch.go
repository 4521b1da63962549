package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/hierarchy"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/refsel"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

var (
	schResaveOutput string
	schListRefs     string
	schListFlat     bool
)

var schCmd = &cobra.Command{
	Use:   "sch",
	Short: "KiCad legacy schematic operations",
	Long:  `Commands for working with KiCad legacy schematic files (.sch)`,
}

var schInfoCmd = &cobra.Command{
	Use:   "info <schematic_file> [component]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad legacy schematic file.

Without component argument: shows schematic summary
With component argument: shows details for that specific component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSchInfo,
}

var schResaveCmd = &cobra.Command{
	Use:   "resave <schematic_file>",
	Short: "Load and save a schematic",
	Long: `Load a schematic and write it back in canonical form.

The file is replaced in place unless --output is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resave(args[0], schResaveOutput, "schematic")
	},
}

var schTreeCmd = &cobra.Command{
	Use:   "tree <root_schematic>",
	Short: "Show the sheet hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchTree,
}

var schListCmd = &cobra.Command{
	Use:   "list <root_schematic>",
	Short: "List component instances",
	Long: `List every component instance of a design with its per-sheet reference.

Sub-sheets are loaded unless --flat is given. --refs limits the output to a
selection such as "R1-R10, C3".`,
	Args: cobra.ExactArgs(1),
	RunE: runSchList,
}

func init() {
	rootCmd.AddCommand(schCmd)
	schCmd.AddCommand(schInfoCmd)
	schCmd.AddCommand(schResaveCmd)
	schCmd.AddCommand(schTreeCmd)
	schCmd.AddCommand(schListCmd)

	schResaveCmd.Flags().StringVarP(&schResaveOutput, "output", "o", "", "output file (default: overwrite input)")
	schListCmd.Flags().StringVar(&schListRefs, "refs", "", "only list these references, e.g. \"R1-R10, C3\"")
	schListCmd.Flags().BoolVar(&schListFlat, "flat", false, "do not load sub-sheets")
}

func runSchInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	sch, err := schematic.ParseFile(filename, loadOptions()...)
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	if len(args) >= 2 {
		return showComponentDetails(sch, args[1])
	}

	showSchemSummary(sch, filename)
	return nil
}

func showSchemSummary(sch *schematic.Schematic, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", sch.Version)
	if len(sch.Libs) > 0 {
		fmt.Printf("Libraries: %s\n", strings.Join(sch.Libs, ", "))
	}

	if d := sch.Descr; d != nil {
		orient := "landscape"
		if d.Portrait {
			orient = "portrait"
		}
		fmt.Printf("Paper: %s (%dx%d mils, %s)\n", d.Paper, d.Width, d.Height, orient)
		fmt.Printf("Sheet: %d of %d\n", d.SheetNumber, d.SheetCount)
		fmt.Println()

		if d.Title != "" || d.Rev != "" {
			fmt.Println("Title Block:")
			if d.Title != "" {
				fmt.Printf("  Title: %s\n", d.Title)
			}
			if d.Date != "" {
				fmt.Printf("  Date: %s\n", d.Date)
			}
			if d.Rev != "" {
				fmt.Printf("  Revision: %s\n", d.Rev)
			}
			if d.Company != "" {
				fmt.Printf("  Company: %s\n", d.Company)
			}
		}
	}
	fmt.Println()

	var wires, buses, junctions, noConns, labels, bitmaps, entries int
	var netLabels []string
	for _, it := range sch.Items {
		switch v := it.(type) {
		case *schematic.Wire:
			switch v.Kind {
			case "Wire":
				wires++
			case "Bus":
				buses++
			}
		case *schematic.Connection:
			if v.Kind == "NoConn" {
				noConns++
			} else {
				junctions++
			}
		case *schematic.TextLabel:
			if v.Kind != "Notes" {
				labels++
				netLabels = append(netLabels, v.Text)
			}
		case *schematic.Bitmap:
			bitmaps++
		case *schematic.Entry:
			entries++
		}
	}

	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", len(sch.Components()))
	fmt.Printf("  Wires: %d\n", wires)
	fmt.Printf("  Buses: %d\n", buses)
	fmt.Printf("  Bus entries: %d\n", entries)
	fmt.Printf("  Junctions: %d\n", junctions)
	fmt.Printf("  Labels: %d\n", labels)
	fmt.Printf("  Sheets: %d\n", len(sch.Sheets()))
	fmt.Printf("  No-connects: %d\n", noConns)
	fmt.Printf("  Bitmaps: %d\n", bitmaps)
	fmt.Println()

	comps := sch.Components()
	if len(comps) > 0 {
		fmt.Println("Components:")

		byPrefix := make(map[string][]string)
		for _, c := range comps {
			ref := c.Reference()
			byPrefix[getRefPrefix(ref)] = append(byPrefix[getRefPrefix(ref)], ref)
		}

		var prefixes []string
		for p := range byPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			refs := byPrefix[prefix]
			sort.Strings(refs)
			fmt.Printf("  %s: %s\n", prefix, strings.Join(refs, ", "))
		}
		fmt.Println()
	}

	if len(netLabels) > 0 {
		fmt.Println("Net Labels:")
		sort.Strings(netLabels)
		for _, l := range netLabels {
			fmt.Printf("  %s\n", l)
		}
		fmt.Println()
	}

	if sheets := sch.Sheets(); len(sheets) > 0 {
		fmt.Println("Hierarchical Sheets:")
		for _, sheet := range sheets {
			fmt.Printf("  %s (%s)\n", sheet.Name, sheet.FileName)
			if len(sheet.Pins) > 0 {
				var pinNames []string
				for _, p := range sheet.Pins {
					pinNames = append(pinNames, p.Text)
				}
				fmt.Printf("    Pins: %s\n", strings.Join(pinNames, ", "))
			}
		}
	}
}

func showComponentDetails(sch *schematic.Schematic, ref string) error {
	c := sch.GetComponent(ref)
	if c == nil {
		return fmt.Errorf("component '%s' not found", ref)
	}

	fmt.Printf("Component: %s\n", ref)
	fmt.Printf("Library: %s\n", c.LibName)
	fmt.Printf("Position: (%d, %d)\n", c.Position.X, c.Position.Y)
	fmt.Printf("Unit: %d\n", c.Unit)
	if c.AlternateBody {
		fmt.Println("Body: De Morgan")
	}
	fmt.Printf("Timestamp: %s\n", c.Timestamp)
	fmt.Println()

	fmt.Println("Fields:")
	for _, f := range c.Fields {
		name := f.Name
		if name == "" {
			name = fieldName(f.Number)
		}
		hidden := ""
		if !f.Visible() {
			hidden = " (hidden)"
		}
		fmt.Printf("  %s: %s%s\n", name, f.Text, hidden)
	}

	if len(c.HierRefs) > 0 {
		fmt.Println()
		fmt.Println("Sheet instances:")
		for _, hr := range c.HierRefs {
			fmt.Printf("  %s: %s (unit %s)\n", hr.Path, hr.Ref, hr.Part)
		}
	}
	return nil
}

func fieldName(number int) string {
	switch number {
	case schematic.FieldReference:
		return "Reference"
	case schematic.FieldValue:
		return "Value"
	case schematic.FieldFootprint:
		return "Footprint"
	case schematic.FieldDatasheet:
		return "Datasheet"
	}
	return fmt.Sprintf("Field%d", number)
}

func getRefPrefix(ref string) string {
	if prefix, _, ok := schematic.SplitRef(ref); ok {
		return prefix
	}
	return ref
}

func runSchTree(cmd *cobra.Command, args []string) error {
	root, err := hierarchy.Load(args[0], loadOptions()...)
	if err != nil {
		return fmt.Errorf("error loading hierarchy: %w", err)
	}

	var show func(n *hierarchy.Node, depth int)
	show = func(n *hierarchy.Node, depth int) {
		name := n.Name
		if name == "" {
			name = "(root)"
		}
		fmt.Printf("%s%s  %s  %s  [%d components]\n",
			strings.Repeat("  ", depth), name, n.Path, n.File, len(n.Schematic.Components()))
		for _, c := range n.Children {
			show(c, depth+1)
		}
	}
	show(root, 0)

	logger.Printf("%d sheet instances in %d files", root.Count(), len(root.Files()))
	return nil
}

// loadEntries flattens the design rooted at path and also returns the root
// schematic.
func loadEntries(path string, flat bool) ([]hierarchy.Entry, *schematic.Schematic, error) {
	if flat {
		sch, err := schematic.ParseFile(path, loadOptions()...)
		if err != nil {
			return nil, nil, fmt.Errorf("error parsing schematic: %w", err)
		}
		return hierarchy.FlattenSchematic(sch), sch, nil
	}

	root, err := hierarchy.Load(path, loadOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading hierarchy: %w", err)
	}
	return hierarchy.Flatten(root), root.Schematic, nil
}

func runSchList(cmd *cobra.Command, args []string) error {
	sel, err := refsel.Parse(schListRefs)
	if err != nil {
		return err
	}

	entries, _, err := loadEntries(args[0], schListFlat)
	if err != nil {
		return err
	}

	shown := 0
	for _, e := range entries {
		if !sel.Contains(e.Ref) {
			continue
		}
		c := e.Component
		fmt.Printf("%-8s %-4d %-20s %-30s %s\n", e.Ref, e.Unit, c.Value(), c.Footprint(), e.Path)
		shown++
	}
	logger.Printf("%d of %d instances listed", shown, len(entries))
	return nil
}
