package metrics

import (
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Registry holds engine-level counters. All methods are safe for concurrent
// use.
type Registry struct {
	messagesScanned uint64
	joinsTracked    uint64
	actionsQueued   uint64
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) IncMessagesScanned() { atomic.AddUint64(&r.messagesScanned, 1) }
func (r *Registry) IncJoinsTracked()    { atomic.AddUint64(&r.joinsTracked, 1) }
func (r *Registry) IncActionsQueued()   { atomic.AddUint64(&r.actionsQueued, 1) }

type Counters struct {
	MessagesScanned uint64
	JoinsTracked    uint64
	ActionsQueued   uint64
}

func (r *Registry) Snapshot() Counters {
	return Counters{
		MessagesScanned: atomic.LoadUint64(&r.messagesScanned),
		JoinsTracked:    atomic.LoadUint64(&r.joinsTracked),
		ActionsQueued:   atomic.LoadUint64(&r.actionsQueued),
	}
}

// SystemStats is a point-in-time host resource snapshot.
type SystemStats struct {
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsedMB  uint64
	UptimeSec     uint64
}

// CollectSystem samples host CPU, memory and uptime.
func CollectSystem() (*SystemStats, error) {
	stats := &SystemStats{}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	stats.MemoryPercent = vm.UsedPercent
	stats.MemoryUsedMB = vm.Used / (1024 * 1024)

	if uptime, err := host.Uptime(); err == nil {
		stats.UptimeSec = uptime
	}

	return stats, nil
}
