package dispatcher

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
)

// jobExecutor is what a worker needs to carry a job out. Satisfied by
// RESTClient.
type jobExecutor interface {
	ExecuteBan(communityID, targetID, reason string) (int64, error)
	ExecuteKick(communityID, targetID, reason string) (int64, error)
}

// Dispatcher feeds queued enforcement jobs to a pool of workers. The policy
// layer enqueues; workers execute against the platform REST API.
type Dispatcher struct {
	queue   *PriorityQueue
	exec    jobExecutor
	workers int
	running atomic.Bool
	wg      sync.WaitGroup
}

func New(exec jobExecutor, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		queue:   NewPriorityQueue(),
		exec:    exec,
		workers: workers,
	}
}

func (d *Dispatcher) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runLoop(i)
	}
}

func (d *Dispatcher) Stop() {
	d.running.Store(false)
	d.wg.Wait()
}

// QueueBan schedules a ban. Jobs survive in the queue until a worker picks
// them up.
func (d *Dispatcher) QueueBan(communityID, targetID, reason string, priority JobPriority) {
	d.queue.Enqueue(NewBanJob(communityID, targetID, reason, priority))
}

// QueueKick schedules a kick.
func (d *Dispatcher) QueueKick(communityID, targetID, reason string, priority JobPriority) {
	d.queue.Enqueue(NewKickJob(communityID, targetID, reason, priority))
}

func (d *Dispatcher) Pending() int {
	return d.queue.Size()
}

func (d *Dispatcher) runLoop(workerID int) {
	defer d.wg.Done()

	for d.running.Load() {
		job, ok := d.queue.Dequeue()
		if !ok {
			runtime.Gosched()
			continue
		}
		d.executeJob(workerID, job)
	}
}

func (d *Dispatcher) executeJob(workerID int, job *Job) {
	var elapsed int64
	var err error

	switch job.Type {
	case JobTypeBan:
		elapsed, err = d.exec.ExecuteBan(job.CommunityID, job.TargetID, job.Reason)
	case JobTypeKick:
		elapsed, err = d.exec.ExecuteKick(job.CommunityID, job.TargetID, job.Reason)
	}

	if err != nil {
		logging.Warn("worker %d: job failed for %s in %s: %v", workerID, job.TargetID, job.CommunityID, err)
		return
	}
	logging.Debug("worker %d: executed job for %s in %dus", workerID, job.TargetID, elapsed)
}
