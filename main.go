package main

import (
	"os"

	"github.com/notebook-intelligence/nbi-settings/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
