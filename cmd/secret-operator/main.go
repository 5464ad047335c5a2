package main

import (
	"fmt"
	"os"

	"github.com/viet-stackable/secret-operator/cmd/secret-operator/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
