package main

import (
	"os"

	"github.com/formdeck/formdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
