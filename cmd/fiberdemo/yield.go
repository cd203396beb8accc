package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fiber-runner/core"
)

func YieldCommand() *cli.Command {
	return &cli.Command{
		Name:  "yield",
		Usage: "Interleave tasks that yield after every step",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tasks", Value: 3, Usage: "Number of tasks"},
			&cli.IntFlag{Name: "rounds", Value: 4, Usage: "Steps per task"},
		},
		Action: YieldAction,
	}
}

func YieldAction(c *cli.Context) error {
	tasks, rounds := c.Int("tasks"), c.Int("rounds")
	if tasks < 1 || rounds < 1 {
		return cli.Exit("tasks and rounds must be positive", 2)
	}

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	spawned, err := rt.spawn(tasks, func(t *core.Task, arg any) {
		for r := range rounds {
			fmt.Printf("task %d step %d on %s\n", arg.(int), r, t.Scheduler().Name())
			if err := t.Yield(); err != nil {
				rt.log.WithError(err).Error("Yield failed")
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return rt.wait(c.Context, spawned...)
}
