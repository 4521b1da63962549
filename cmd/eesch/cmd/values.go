package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/hierarchy"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/valuevis"
)

var valuesDryRun bool

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Component value operations",
}

var valuesToggleCmd = &cobra.Command{
	Use:   "toggle <root_schematic>",
	Short: "Hide or unhide component values",
	Long: `Hide every visible component value in the design, or show again the
values hidden by a previous run.

Hidden values are marked with a user field (default "Hidden Value", see
values.mark in the config) so that values hidden by hand are left alone.
Every sheet file of the hierarchy is rewritten.`,
	Args: cobra.ExactArgs(1),
	RunE: runValuesToggle,
}

func init() {
	rootCmd.AddCommand(valuesCmd)
	valuesCmd.AddCommand(valuesToggleCmd)

	valuesToggleCmd.Flags().BoolVarP(&valuesDryRun, "dry-run", "n", false, "report changes without saving")
}

func runValuesToggle(cmd *cobra.Command, args []string) error {
	root, err := hierarchy.Load(args[0], loadOptions()...)
	if err != nil {
		return fmt.Errorf("error loading hierarchy: %w", err)
	}

	for _, sch := range root.Schematics() {
		hidden, shown := valuevis.ToggleSchematic(sch, cfg.Values.Mark)
		fmt.Printf("%s: %d hidden, %d shown\n", sch.Path, hidden, shown)
		if valuesDryRun || hidden+shown == 0 {
			continue
		}
		warnCharset(sch.Path)
		if err := sch.Save(""); err != nil {
			return err
		}
		logger.Printf("saved %s", sch.Path)
	}
	return nil
}
