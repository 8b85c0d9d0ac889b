package main

import (
	"fmt"

	"tractor.dev/charloop"
	"tractor.dev/toolkit-go/engine/cli"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Usage: "version",
		Short: "print the version",
		Run: func(ctx *cli.Context, args []string) {
			fmt.Fprintln(ctx, charloop.Version)
		},
	}
}
