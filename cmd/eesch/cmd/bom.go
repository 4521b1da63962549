package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/bom"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

var (
	bomOutput  string
	bomGroupBy []string
	bomColumns []string
	bomFlat    bool
)

var bomCmd = &cobra.Command{
	Use:   "bom <root_schematic>",
	Short: "Generate a bill of materials",
	Long: `Group the components of a design into BOM lines.

Parts with the same reference prefix, value, footprint and --group-by fields
share a line; references are shortened to ranges (R7, R9-R14). Field texts may
refer to other fields as ${Field}. The bom.group, bom.exclude and bom.adjust
config keys name the section, exclusion and adjustment marker fields.

The output format follows the extension of --output (.csv or .xlsx); without
--output a CSV is written to stdout. Workbooks also get the title block of the
root sheet on a second sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runBOM,
}

func init() {
	rootCmd.AddCommand(bomCmd)

	bomCmd.Flags().StringVarP(&bomOutput, "output", "o", "", "output file (.csv or .xlsx)")
	bomCmd.Flags().StringSliceVar(&bomGroupBy, "group-by", nil, "user fields that split BOM lines (default from config)")
	bomCmd.Flags().StringSliceVar(&bomColumns, "columns", nil, "user fields written as columns (default from config)")
	bomCmd.Flags().BoolVar(&bomFlat, "flat", false, "do not load sub-sheets")
}

func runBOM(cmd *cobra.Command, args []string) error {
	opts := cfg.BOMOptions()
	if cmd.Flags().Changed("group-by") {
		opts.GroupBy = bomGroupBy
	}
	if cmd.Flags().Changed("columns") {
		opts.Columns = bomColumns
	}

	var xlsx bool
	switch ext := strings.ToLower(filepath.Ext(bomOutput)); ext {
	case "", ".csv":
	case ".xlsx":
		xlsx = true
	default:
		return fmt.Errorf("unsupported BOM format %q, use .csv or .xlsx", ext)
	}

	entries, root, err := loadEntries(args[0], bomFlat)
	if err != nil {
		return err
	}
	lines, err := bom.Build(entries, opts)
	if err != nil {
		return err
	}
	logger.Printf("%d instances grouped into %d lines", len(entries), len(lines))
	for _, l := range lines {
		for _, name := range l.Conflicts {
			warner.Printf("%s: %s differs between parts: %s", l.Refs(), name, l.Fields[name])
		}
	}

	write := func(w io.Writer) error {
		if xlsx {
			stamp := bom.StampFrom(root.Descr)
			return bom.WriteXLSX(w, lines, opts.Columns, &stamp)
		}
		return bom.WriteCSV(w, lines, opts.Columns)
	}
	if bomOutput == "" {
		return write(cmd.OutOrStdout())
	}
	if err := format.WriteFileAtomic(bomOutput, write); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lines\n", bomOutput, len(lines))
	return nil
}
