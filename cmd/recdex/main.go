// Package main provides the entry point for the recdex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/recdex/cmd/recdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
