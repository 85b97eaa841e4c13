// Package main launches the xmapgen CLI.
package main

import (
	"github.com/polyhop/xmapgen/cmd"
)

func main() {
	cmd.Execute()
}
