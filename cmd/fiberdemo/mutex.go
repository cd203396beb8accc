package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fiber-runner/core"
)

func MutexCommand() *cli.Command {
	return &cli.Command{
		Name:  "mutex",
		Usage: "Increment a shared counter under a fiber mutex",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tasks", Value: 16, Usage: "Number of tasks"},
			&cli.IntFlag{Name: "iterations", Value: 1000, Usage: "Increments per task"},
		},
		Action: MutexAction,
	}
}

func MutexAction(c *cli.Context) error {
	tasks, iterations := c.Int("tasks"), c.Int("iterations")
	if tasks < 1 || iterations < 1 {
		return cli.Exit("tasks and iterations must be positive", 2)
	}

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	m := core.NewMutex()
	counter := 0
	spawned, err := rt.spawn(tasks, func(t *core.Task, _ any) {
		for range iterations {
			if err := m.Lock(t); err != nil {
				rt.log.WithError(err).Error("Lock failed")
				return
			}
			counter++
			_ = m.Unlock(t)
			_ = t.Yield()
		}
	})
	if err != nil {
		return err
	}
	if err := rt.wait(c.Context, spawned...); err != nil {
		return err
	}

	fmt.Printf("counter = %d, want %d\n", counter, tasks*iterations)
	if counter != tasks*iterations {
		return cli.Exit("mutex lost increments", 1)
	}
	return m.Destroy()
}
