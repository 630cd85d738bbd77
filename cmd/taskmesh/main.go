package main

import (
	"os"

	"github.com/hugo-lorenzo-mato/taskmesh/cmd/taskmesh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
