package main

import (
	"os"

	"github.com/coachkit/knowledge-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
