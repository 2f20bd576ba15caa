package main

import (
	"os"

	"github.com/flateze/flateze/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
