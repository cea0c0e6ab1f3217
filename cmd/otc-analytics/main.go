package main

import (
	"fmt"
	"os"

	"otc-analytics/cmd/otc-analytics/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
