package main

import (
	"os"

	"github.com/trungkien100823/koicourse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
