package main

import (
	"os"

	"secretline/cmd/secretline/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
