package main

import (
	"os"

	"github.com/wonny/gedash/cmd/gedash/commands"
)

// main is the entry point for the gedash CLI
// ⭐ single CLI entry point: go run ./cmd/gedash [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
