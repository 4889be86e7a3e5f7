package main

import (
	"os"

	"mediabot/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Stderr))
}
