package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/KiCad-RU/kicad-plugins/internal/config"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
)

var (
	// Global flags
	verbose    bool
	configFile string

	cfg    = config.DefaultConfig()
	logger = log.New(io.Discard, "eesch: ", 0)
	warner = log.New(os.Stderr, "eesch: warning: ", 0)
)

var rootCmd = &cobra.Command{
	Use:   "eesch",
	Short: "eesch - KiCad legacy schematic and library tools",
	Long: `eesch reads and writes KiCad legacy files:
  - schematics (.sch, "EESchema Schematic File Version N")
  - symbol libraries (.lib, "EESchema-LIBRARY Version M.m")

Examples:
  eesch sch info board.sch              # Show schematic summary
  eesch sch tree board.sch              # Show the sheet hierarchy
  eesch lib info symbols.lib            # Show library summary
  eesch bom board.sch -o bom.xlsx       # Write a grouped BOM
  eesch values toggle board.sch         # Hide or unhide component values
  eesch pack board.sch -o board.zip     # Bundle sheets and libraries`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: eesch.yaml in the working or user config directory)")
	rootCmd.PersistentFlags().Bool("lenient", false, "skip malformed records instead of failing")
	rootCmd.PersistentFlags().String("charset", "utf-8", "charset of input files, e.g. windows-1251 (files are always saved as UTF-8)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if verbose {
		logger.SetOutput(os.Stderr)
	}

	c, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c
	logger.Printf("charset %s, lenient %v", cfg.Charset, cfg.Lenient)
	return nil
}

// loadOptions returns the file load options for the current configuration.
func loadOptions() []format.Option {
	return cfg.FormatOptions(func(err error) {
		warner.Println(err)
	})
}

// warnCharset notes that path, read in a legacy charset, is about to be
// written back as UTF-8.
func warnCharset(path string) {
	if !format.NewOptions(format.WithCharset(cfg.Charset)).IsUTF8() {
		warner.Printf("%s was read as %s and is saved as UTF-8", path, cfg.Charset)
	}
}
