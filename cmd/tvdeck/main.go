// Package main is the entry point for the tvdeck application.
package main

import (
	"os"

	"github.com/tvdeck/tvdeck/cmd/tvdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
