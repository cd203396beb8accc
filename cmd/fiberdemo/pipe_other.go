//go:build !linux

package main

import "github.com/urfave/cli/v2"

func platformCommands() []*cli.Command {
	return nil
}
