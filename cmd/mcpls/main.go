// Package main provides the entry point for the mcpls CLI.
package main

import (
	"fmt"
	"os"

	"mcpls/cmd/mcpls/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
