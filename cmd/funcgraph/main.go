// Package main is the entry point for the funcgraph CLI.
package main

import (
	"fmt"
	"os"

	"github.com/aiai-labs/funcgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
