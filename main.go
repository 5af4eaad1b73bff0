// ./main.go
package main

import (
	"github.com/q0rren/attendant/cmd"
)

// main is the entry point for the attendant CLI application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
