package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fiber-runner/core"
)

func CondCommand() *cli.Command {
	return &cli.Command{
		Name:  "cond",
		Usage: "Count to a limit and signal a watcher at every multiple of a step",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 6, Usage: "Last value counted"},
			&cli.IntFlag{Name: "step", Value: 3, Usage: "Signal the watcher at multiples of this"},
		},
		Action: CondAction,
	}
}

func CondAction(c *cli.Context) error {
	limit, step := c.Int("limit"), c.Int("step")
	if step < 1 || limit < step {
		return cli.Exit("need 1 <= step <= limit", 2)
	}
	last := limit - limit%step

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	m := core.NewMutex()
	ready, ack := core.NewCond(), core.NewCond()
	var value, seen int

	watcher, err := rt.pool.Go(func(t *core.Task, _ any) {
		_ = m.Lock(t)
		defer func() { _ = m.Unlock(t) }()
		for seen != last {
			for value%step != 0 || value == seen {
				if err := ready.Wait(t, m); err != nil {
					rt.log.WithError(err).Error("Wait failed")
					return
				}
			}
			fmt.Printf("watcher saw %d\n", value)
			seen = value
			ack.Signal()
		}
	}, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to submit watcher: %v", err), 1)
	}

	counter, err := rt.pool.Go(func(t *core.Task, _ any) {
		for v := 1; v <= limit; v++ {
			_ = m.Lock(t)
			value = v
			fmt.Printf("counter at %d\n", v)
			if v%step == 0 {
				ready.Signal()
				for seen != v {
					_ = ack.Wait(t, m)
				}
			}
			_ = m.Unlock(t)
			_ = t.Yield()
		}
	}, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to submit counter: %v", err), 1)
	}

	return rt.wait(c.Context, watcher, counter)
}
