package main

import (
	"os"

	"github.com/plexgraph/plexgraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
