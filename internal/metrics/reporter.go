package metrics

import (
	"sync"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
)

// Reporter periodically logs counters and host stats.
type Reporter struct {
	registry *Registry
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewReporter(registry *Registry, interval time.Duration) *Reporter {
	return &Reporter{
		registry: registry,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (r *Reporter) Start() {
	r.wg.Add(1)
	go r.run()
}

func (r *Reporter) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	c := r.registry.Snapshot()
	logging.Info("counters: scanned=%d joins=%d queued=%d",
		c.MessagesScanned, c.JoinsTracked, c.ActionsQueued)

	if stats, err := CollectSystem(); err == nil {
		logging.Info("host: cpu=%.1f%% mem=%.1f%% (%dMB) uptime=%ds",
			stats.CPUPercent, stats.MemoryPercent, stats.MemoryUsedMB, stats.UptimeSec)
	}
}
