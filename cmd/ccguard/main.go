package main

import (
	"os"

	"github.com/mindcockpit-ai/ccguard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
