package main

import (
	"os"

	"modelctl/internal/cli"
)

func main() { os.Exit(cli.Main()) }
