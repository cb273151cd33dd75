package main

import (
	"fmt"
	"os"

	"github.com/dynamosa/dynamosa/cmd/dynamosa/app"
)

func main() {
	if err := app.NewDynamosaCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
