package main

import (
	"os"

	"github.com/dshills/patchpilot/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
