package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fiber-runner/core"
	fiberlog "github.com/Swind/go-fiber-runner/observability/logrus"
	obs "github.com/Swind/go-fiber-runner/observability/prometheus"
)

const shutdownTimeout = 5 * time.Second

func poolFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Value:   4,
			Usage:   "Number of worker threads (rounded up to a power of two)",
		},
		&cli.IntFlag{
			Name:  "queue-size",
			Value: core.DefaultQueueSize,
			Usage: "Resident task limit per worker",
		},
		&cli.StringFlag{
			Name:  "policy",
			Value: "round-robin",
			Usage: "Dispatch policy: round-robin or least-loaded",
		},
		&cli.BoolFlag{
			Name:  "pin",
			Usage: "Pin each worker thread to a CPU",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "Log level: debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address while running",
		},
	}
}

// demoRuntime is the pool plus its observability for one command.
type demoRuntime struct {
	pool   *core.Pool
	log    *logrus.Logger
	poller *obs.SnapshotPoller
	server *http.Server
}

func newRuntime(c *cli.Context) (*demoRuntime, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid log level: %v", err), 2)
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	config := core.DefaultPoolConfig()
	config.Name = "fiberdemo"
	config.Workers = c.Int("workers")
	config.QueueSize = c.Int("queue-size")
	config.PinWorkers = c.Bool("pin")
	config.Logger = fiberlog.New(log)

	switch c.String("policy") {
	case "round-robin":
		config.Policy = core.NewRoundRobinPolicy()
	case "least-loaded":
		config.Policy = core.LeastLoadedPolicy{}
	default:
		return nil, cli.Exit(fmt.Sprintf("unknown policy %q", c.String("policy")), 2)
	}

	rt := &demoRuntime{log: log}
	var reg *prom.Registry
	if addr := c.String("metrics-addr"); addr != "" {
		reg = prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter("", reg, obs.ExporterOptions{})
		if err != nil {
			return nil, err
		}
		config.Metrics = exporter
		if rt.poller, err = obs.NewSnapshotPoller(reg, 100*time.Millisecond); err != nil {
			return nil, err
		}
	}

	pool, err := core.NewPoolWithConfig(config)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Failed to create pool: %v", err), 1)
	}
	rt.pool = pool

	if reg != nil {
		rt.poller.AddPool(config.Name, pool)
		rt.poller.Start(c.Context)
		if err := rt.serve(c.String("metrics-addr"), reg); err != nil {
			rt.close()
			return nil, cli.Exit(fmt.Sprintf("Failed to serve metrics: %v", err), 1)
		}
	}
	return rt, nil
}

func (rt *demoRuntime) serve(addr string, reg *prom.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	rt.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := rt.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.log.WithError(err).Warn("Metrics server stopped")
		}
	}()
	rt.log.WithField("addr", ln.Addr().String()).Info("Serving metrics")
	return nil
}

// wait blocks until every task is dead and returns the first task error.
func (rt *demoRuntime) wait(ctx context.Context, tasks ...*core.Task) error {
	var errs []error
	for _, t := range tasks {
		if err := t.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

func (rt *demoRuntime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := rt.pool.ShutdownContext(ctx); err != nil {
		rt.log.WithError(err).Warn("Pool shutdown abandoned tasks")
	}
	if rt.poller != nil {
		rt.poller.Stop()
	}
	if rt.server != nil {
		_ = rt.server.Shutdown(ctx)
	}

	stats := rt.pool.Stats()
	rt.log.WithFields(logrus.Fields{
		"completed": stats.Completed,
		"rejected":  stats.Rejected,
	}).Info("Done")
}

// spawn submits n copies of fn with their index as arg.
func (rt *demoRuntime) spawn(n int, fn core.TaskFunc) ([]*core.Task, error) {
	tasks := make([]*core.Task, 0, n)
	for i := range n {
		t, err := rt.pool.Go(fn, i)
		if err != nil {
			return tasks, cli.Exit(fmt.Sprintf("Failed to submit task %d: %v", i, err), 1)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
