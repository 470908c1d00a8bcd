package main

import (
	"fmt"
	"os"

	"emissions-mcp/cmd/emissions-mcp/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
