package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mholt/archiver"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/hierarchy"
)

const (
	topSheet = "EESchema Schematic File Version 4\n" +
		"LIBS:power\n" +
		"LIBS:device\n" +
		"LIBS:missing\n" +
		"EELAYER 26 0\n" +
		"EELAYER END\n" +
		"$Sheet\n" +
		"S 4000 1000 1200 800 \n" +
		"U 5C000001\n" +
		"F0 \"Amp\" 50\n" +
		"F1 \"sub/amp.sch\" 50\n" +
		"$EndSheet\n" +
		"$EndSCHEMATC\n"
	subSheet = "EESchema Schematic File Version 4\n" +
		"EELAYER 26 0\n" +
		"EELAYER END\n" +
		"$EndSCHEMATC\n"
	emptyLib = "EESchema-LIBRARY Version 2.4\n#\n#End Library\n"
)

func design(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"top.sch":       topSheet,
		"sub/amp.sch":   subSheet,
		"power.lib":     emptyLib,
		"device.lib":    emptyLib,
		"top-cache.lib": emptyLib,
		"unrelated.txt": "x",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestFiles(t *testing.T) {
	dir := design(t)
	root, err := hierarchy.Load(filepath.Join(dir, "top.sch"))
	if err != nil {
		t.Fatalf("Failed to load hierarchy: %v", err)
	}

	files, err := Files(root)
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	want := []string{
		"top.sch",
		filepath.Join("sub", "amp.sch"),
		"top-cache.lib",
		"power.lib",
		"device.lib",
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestPackZip(t *testing.T) {
	dir := design(t)
	root, err := hierarchy.Load(filepath.Join(dir, "top.sch"))
	if err != nil {
		t.Fatalf("Failed to load hierarchy: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "design.zip")
	if _, err := Pack(root, dest); err != nil {
		t.Fatalf("Failed to pack design: %v", err)
	}

	out := t.TempDir()
	if err := archiver.Unarchive(dest, out); err != nil {
		t.Fatalf("Failed to unpack archive: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "top", "sub", "amp.sch"))
	if err != nil {
		t.Fatalf("Sub-sheet missing from archive: %v", err)
	}
	if string(data) != subSheet {
		t.Errorf("Sub-sheet content changed in archive")
	}
	if _, err := os.Stat(filepath.Join(out, "top", "power.lib")); err != nil {
		t.Errorf("Library missing from archive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "top", "unrelated.txt")); !os.IsNotExist(err) {
		t.Errorf("Unrelated file should not be archived, got %v", err)
	}
}

func TestFilesOutsideDesign(t *testing.T) {
	dir := t.TempDir()
	root := &hierarchy.Node{
		File: filepath.Join(dir, "top.sch"),
		Children: []*hierarchy.Node{
			{File: filepath.Join(dir, "..", "elsewhere.sch")},
		},
	}
	if _, err := Files(root); err == nil {
		t.Error("Expected error for sheet outside the design directory")
	}
}
