package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-fiber-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
// *core.Pool implements it.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports pool and scheduler Stats() snapshots
// into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	poolResident  *prom.GaugeVec
	poolQueued    *prom.GaugeVec
	poolSuspended *prom.GaugeVec
	poolCompleted *prom.GaugeVec
	poolRejected  *prom.GaugeVec
	poolWorkers   *prom.GaugeVec
	poolRunning   *prom.GaugeVec

	schedulerResident  *prom.GaugeVec
	schedulerQueued    *prom.GaugeVec
	schedulerSuspended *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	poolGauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "fiberrunner",
			Name:      name,
			Help:      help,
		}, []string{"pool"})
	}
	schedulerGauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "fiberrunner",
			Name:      name,
			Help:      help,
		}, []string{"pool", "scheduler"})
	}

	p := &SnapshotPoller{
		interval:           interval,
		pools:              make(map[string]PoolSnapshotProvider),
		poolResident:       poolGauge("pool_resident", "Admitted tasks that are not dead yet."),
		poolQueued:         poolGauge("pool_queued", "Runnable tasks waiting in run queues."),
		poolSuspended:      poolGauge("pool_suspended", "Tasks parked on a primitive, an fd or a join."),
		poolCompleted:      poolGauge("pool_completed_total", "Pool completed task count snapshot."),
		poolRejected:       poolGauge("pool_rejected_total", "Pool rejected task count snapshot."),
		poolWorkers:        poolGauge("pool_workers", "Worker count per pool."),
		poolRunning:        poolGauge("pool_running", "Pool running state (1=running, 0=stopped)."),
		schedulerResident:  schedulerGauge("scheduler_resident", "Resident tasks per scheduler."),
		schedulerQueued:    schedulerGauge("scheduler_queued", "Run queue length per scheduler."),
		schedulerSuspended: schedulerGauge("scheduler_suspended", "Suspended tasks per scheduler."),
	}

	for _, g := range []**prom.GaugeVec{
		&p.poolResident, &p.poolQueued, &p.poolSuspended, &p.poolCompleted,
		&p.poolRejected, &p.poolWorkers, &p.poolRunning,
		&p.schedulerResident, &p.schedulerQueued, &p.schedulerSuspended,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}
	return p, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolResident.WithLabelValues(name).Set(float64(stats.Resident))
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolSuspended.WithLabelValues(name).Set(float64(stats.Suspended))
		p.poolCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.poolRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
		for _, s := range stats.Schedulers {
			schedulerName := normalizeLabel(s.Name, "unknown")
			p.schedulerResident.WithLabelValues(name, schedulerName).Set(float64(s.Resident))
			p.schedulerQueued.WithLabelValues(name, schedulerName).Set(float64(s.Queued))
			p.schedulerSuspended.WithLabelValues(name, schedulerName).Set(float64(s.Suspended))
		}
	}
}
