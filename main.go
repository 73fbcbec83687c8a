package main

import (
	"os"

	"github.com/shopfront/shopctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
