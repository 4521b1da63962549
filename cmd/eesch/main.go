// eesch inspects and rewrites KiCad legacy schematics and symbol libraries
package main

import "github.com/KiCad-RU/kicad-plugins/cmd/eesch/cmd"

func main() {
	cmd.Execute()
}
