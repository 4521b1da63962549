package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Lenient {
		t.Error("Expected strict loading by default")
	}
	if cfg.Values.Mark != "Hidden Value" {
		t.Errorf("Expected default mark 'Hidden Value', got '%s'", cfg.Values.Mark)
	}
	if n := len(cfg.FormatOptions(nil)); n != 1 {
		t.Errorf("Expected only the charset option, got %d options", n)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Charset = "no-such-charset"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown charset")
	}

	cfg = DefaultConfig()
	cfg.Charset = ""
	cfg.Values.Mark = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Charset != "utf-8" || cfg.Values.Mark != "Hidden Value" {
		t.Errorf("Expected empty settings to be filled, got %+v", cfg)
	}

	cfg.Values.Mark = `bad "mark"`
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for quoted mark")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "eesch.yaml", `
lenient: true
charset: windows-1251
bom:
  group_by: [Tolerance, Voltage]
  columns:
    - Manufacturer
  all_units: true
  group: Section
  exclude: ""
values:
  mark: HV
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := &Config{
		Lenient: true,
		Charset: "windows-1251",
		BOM: BOMConfig{
			GroupBy:  []string{"Tolerance", "Voltage"},
			Columns:  []string{"Manufacturer"},
			AllUnits: true,
			Group:    "Section",
			Exclude:  "",
			Adjust:   "Подбирают при регулировании",
		},
		Values: ValuesConfig{Mark: "HV"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}

	if n := len(cfg.FormatOptions(nil)); n != 2 {
		t.Errorf("Expected charset and lenient options, got %d", n)
	}
	bc := cfg.BOMOptions()
	if !bc.AllUnits || len(bc.GroupBy) != 2 || bc.Group != "Section" || bc.Exclude != "" {
		t.Errorf("Unexpected BOM options %+v", bc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml"), nil); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, "eesch.yaml", "charset: utf-8\nvalues:\n  mark: FromFile\n")
	t.Setenv("EESCH_VALUES_MARK", "FromEnv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("lenient", false, "")
	flags.String("charset", "", "")
	if err := flags.Parse([]string{"--charset", "koi8-r"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Values.Mark != "FromEnv" {
		t.Errorf("Expected environment to override file, got '%s'", cfg.Values.Mark)
	}
	if cfg.Charset != "koi8-r" {
		t.Errorf("Expected flag to override file, got '%s'", cfg.Charset)
	}
	if cfg.Lenient {
		t.Error("Unset flag must not override the default")
	}
}
