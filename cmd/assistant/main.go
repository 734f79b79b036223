package main

import (
	"os"

	"immobilier-assistant/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
