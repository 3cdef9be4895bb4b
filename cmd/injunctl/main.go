package main

import (
	"os"

	"github.com/injunweb/injunctl/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
