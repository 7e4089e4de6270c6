package main

import (
	"context"
	"os"

	"planhub-be/internal/cli"

	"github.com/fatih/color"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
