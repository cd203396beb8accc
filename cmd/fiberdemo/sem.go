package main

import (
	"fmt"
	"sync/atomic"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fiber-runner/core"
)

func SemCommand() *cli.Command {
	return &cli.Command{
		Name:    "sem",
		Aliases: []string{"semaphore"},
		Usage:   "Run producer and consumer pairs over one counting semaphore",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "pairs", Value: 2, Usage: "Producer/consumer pairs"},
			&cli.IntFlag{Name: "items", Value: 128, Usage: "Items each producer posts"},
		},
		Action: SemAction,
	}
}

func SemAction(c *cli.Context) error {
	pairs, items := c.Int("pairs"), c.Int("items")
	if pairs < 1 || items < 1 {
		return cli.Exit("pairs and items must be positive", 2)
	}

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	sem, err := core.NewSemaphore(0)
	if err != nil {
		return err
	}
	var produced, consumed atomic.Int64

	consumers, err := rt.spawn(pairs, func(t *core.Task, _ any) {
		for range items {
			if err := sem.Wait(t); err != nil {
				rt.log.WithError(err).Error("Wait failed")
				return
			}
			consumed.Add(1)
			_ = t.Yield()
		}
	})
	if err != nil {
		return err
	}
	producers, err := rt.spawn(pairs, func(t *core.Task, _ any) {
		for range items {
			if err := sem.Post(); err != nil {
				rt.log.WithError(err).Error("Post failed")
				return
			}
			produced.Add(1)
			_ = t.Yield()
		}
	})
	if err != nil {
		return err
	}
	if err := rt.wait(c.Context, append(consumers, producers...)...); err != nil {
		return err
	}

	fmt.Printf("produced %d, consumed %d, semaphore value %d\n",
		produced.Load(), consumed.Load(), sem.Value())
	return sem.Destroy()
}
