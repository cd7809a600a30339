package main

import (
	"os"

	"github.com/parthardas/helpdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
