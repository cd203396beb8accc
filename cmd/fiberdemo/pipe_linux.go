//go:build linux

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/Swind/go-fiber-runner/core"
	"github.com/Swind/go-fiber-runner/ioreactor"
	fiberlog "github.com/Swind/go-fiber-runner/observability/logrus"
)

func platformCommands() []*cli.Command {
	return []*cli.Command{PipeCommand()}
}

func PipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "pipe",
		Usage: "Read a pipe from a task that suspends on EAGAIN until epoll reports it readable",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "messages", Value: 5, Usage: "Messages written to the pipe"},
			&cli.DurationFlag{Name: "interval", Value: 50 * time.Millisecond, Usage: "Delay between writes"},
		},
		Action: PipeAction,
	}
}

func PipeAction(c *cli.Context) error {
	messages, interval := c.Int("messages"), c.Duration("interval")
	if messages < 1 {
		return cli.Exit("messages must be positive", 2)
	}

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to create pipe: %v", err), 1)
	}
	rd, wr := p[0], p[1]
	defer unix.Close(rd)

	reactor, err := ioreactor.New(rt.pool, ioreactor.WithLogger(fiberlog.New(rt.log)))
	if err != nil {
		_ = unix.Close(wr)
		return cli.Exit(fmt.Sprintf("Failed to create reactor: %v", err), 1)
	}
	defer reactor.Close()
	if err := reactor.Add(rd, ioreactor.Readable); err != nil {
		_ = unix.Close(wr)
		return cli.Exit(fmt.Sprintf("Failed to watch pipe: %v", err), 1)
	}
	go func() {
		if err := reactor.Run(c.Context); err != nil && !errors.Is(err, ioreactor.ErrClosed) {
			rt.log.WithError(err).Debug("Reactor stopped")
		}
	}()

	reader, err := rt.pool.Go(func(t *core.Task, _ any) {
		buf := make([]byte, 64)
		for {
			n, err := unix.Read(rd, buf)
			switch {
			case errors.Is(err, unix.EAGAIN):
				if err := rt.pool.SuspendFD(t, rd); err != nil {
					rt.log.WithError(err).Error("Suspend failed")
					return
				}
			case err != nil:
				rt.log.WithError(err).Error("Read failed")
				return
			case n == 0:
				fmt.Println("reader: pipe closed")
				return
			default:
				fmt.Printf("reader: %q\n", buf[:n])
			}
		}
	}, nil)
	if err != nil {
		_ = unix.Close(wr)
		return cli.Exit(fmt.Sprintf("Failed to submit reader: %v", err), 1)
	}

	for i := range messages {
		time.Sleep(interval)
		if _, err := unix.Write(wr, fmt.Appendf(nil, "message %d", i)); err != nil {
			rt.log.WithError(err).Warn("Write failed")
		}
	}
	_ = unix.Close(wr)

	return rt.wait(c.Context, reader)
}
