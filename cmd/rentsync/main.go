package main

import (
	"os"

	"github.com/carlmn/rentsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
