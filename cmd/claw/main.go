package main

import (
	"os"

	"claw/cmd/claw/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
