// Package main provides the taskflow API server and workflow tooling.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "taskflow-api",
		Usage:                 "Define, run and trigger workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			ImportCommand(),
			ValidateCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
