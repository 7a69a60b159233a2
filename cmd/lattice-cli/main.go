package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/latticebi/lattice/pkg/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()

	flag.Parse()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
