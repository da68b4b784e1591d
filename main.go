package main

import (
	"os"

	"github.com/Ay7ot/ctx-sync-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
