package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/bundle"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/hierarchy"
)

var (
	packOutput string
	packForce  bool
)

var packCmd = &cobra.Command{
	Use:   "pack <root_schematic>",
	Short: "Bundle a design into an archive",
	Long: `Write every sheet file of a design, plus the symbol libraries it lists
that sit next to the root sheet, into one archive. The archive format follows
the extension of --output (.zip, .tar.gz, ...).`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "archive file (default: <root>.zip)")
	packCmd.Flags().BoolVarP(&packForce, "force", "f", false, "overwrite an existing archive")
}

func runPack(cmd *cobra.Command, args []string) error {
	rootFile := args[0]
	dest := packOutput
	if dest == "" {
		dest = strings.TrimSuffix(rootFile, filepath.Ext(rootFile)) + ".zip"
	}

	_, statErr := os.Stat(dest)
	exists := statErr == nil
	if exists && !packForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", dest)
	}

	root, err := hierarchy.Load(rootFile, loadOptions()...)
	if err != nil {
		return fmt.Errorf("error loading hierarchy: %w", err)
	}

	if exists {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dest, err)
		}
	}

	files, err := bundle.Pack(root, dest)
	if err != nil {
		return err
	}
	for _, f := range files {
		logger.Printf("packed %s", f)
	}
	fmt.Printf("%s: %d files\n", dest, len(files))
	return nil
}
