// Command fiberdemo runs small scenarios on a fiber pool.
//
//	fiberdemo --workers 2 yield --tasks 3 --rounds 4
//	fiberdemo --metrics-addr :2112 sem --pairs 64 --items 128
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	commands := []*cli.Command{
		YieldCommand(),
		MutexCommand(),
		CondCommand(),
		SemCommand(),
	}
	commands = append(commands, platformCommands()...)

	return &cli.App{
		Name:     "fiberdemo",
		Usage:    "Run cooperative task scenarios on a fiber pool",
		Flags:    poolFlags(),
		Commands: commands,
	}
}
