// Package bundle packs a schematic hierarchy and the symbol libraries it
// uses into a single archive.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/hierarchy"
)

// Files lists the files of the design below root, relative to the
// directory of the root sheet: every sheet file, then every LIBS library and
// the "<name>-cache.lib" file that exist next to the root sheet.
func Files(root *hierarchy.Node) ([]string, error) {
	dir := filepath.Dir(root.File)
	var files []string
	seen := make(map[string]bool)
	add := func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			files = append(files, rel)
		}
	}

	for _, f := range root.Files() {
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return nil, fmt.Errorf("failed to locate %s: %w", f, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("sheet %s is outside the design directory %s", f, dir)
		}
		add(rel)
	}

	base := strings.TrimSuffix(filepath.Base(root.File), filepath.Ext(root.File))
	libs := []string{base + "-cache"}
	for _, sch := range root.Schematics() {
		libs = append(libs, sch.Libs...)
	}
	for _, name := range libs {
		name = strings.TrimSpace(name)
		if name == "" || filepath.IsAbs(name) {
			continue
		}
		rel := filepath.Clean(name + ".lib")
		if info, err := os.Stat(filepath.Join(dir, rel)); err == nil && info.Mode().IsRegular() {
			add(rel)
		}
	}
	return files, nil
}

// Pack writes the design below root to the archive dest. The archive
// format follows the extension of dest (.zip, .tar.gz, ...). Files are stored
// under a directory named after the root sheet, keeping their layout.
func Pack(root *hierarchy.Node, dest string) ([]string, error) {
	files, err := Files(root)
	if err != nil {
		return nil, err
	}

	stage, err := os.MkdirTemp("", "eesch-bundle-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	dir := filepath.Dir(root.File)
	name := strings.TrimSuffix(filepath.Base(root.File), filepath.Ext(root.File))
	top := filepath.Join(stage, name)
	for _, rel := range files {
		if err := copyFile(filepath.Join(dir, rel), filepath.Join(top, rel)); err != nil {
			return nil, err
		}
	}

	if err := archiver.Archive([]string{top}, dest); err != nil {
		return nil, fmt.Errorf("failed to write archive %s: %w", dest, err)
	}
	return files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
