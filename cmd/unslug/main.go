package main

import (
	"os"

	"github.com/wonny/unslug/backend/cmd/unslug/commands"
)

// main is the entry point for the unslug CLI: go run ./cmd/unslug [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
