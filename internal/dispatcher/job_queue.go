package dispatcher

import (
	"sync"
	"time"
)

type JobType uint8

const (
	JobTypeBan JobType = iota
	JobTypeKick
)

type JobPriority uint8

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

type Job struct {
	Type        JobType
	Priority    JobPriority
	CommunityID string
	TargetID    string
	Reason      string
	EnqueuedAt  time.Time
}

func NewBanJob(communityID, targetID, reason string, priority JobPriority) *Job {
	return &Job{
		Type:        JobTypeBan,
		Priority:    priority,
		CommunityID: communityID,
		TargetID:    targetID,
		Reason:      reason,
		EnqueuedAt:  time.Now(),
	}
}

func NewKickJob(communityID, targetID, reason string, priority JobPriority) *Job {
	return &Job{
		Type:        JobTypeKick,
		Priority:    priority,
		CommunityID: communityID,
		TargetID:    targetID,
		Reason:      reason,
		EnqueuedAt:  time.Now(),
	}
}

// PriorityQueue dequeues critical jobs before everything else. Safe for
// concurrent producers and consumers.
type PriorityQueue struct {
	mu       sync.Mutex
	critical []*Job
	high     []*Job
	normal   []*Job
	low      []*Job
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{
		critical: make([]*Job, 0, 256),
		high:     make([]*Job, 0, 512),
		normal:   make([]*Job, 0, 1024),
		low:      make([]*Job, 0, 2048),
	}
}

func (pq *PriorityQueue) Enqueue(job *Job) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	switch job.Priority {
	case PriorityCritical:
		pq.critical = append(pq.critical, job)
	case PriorityHigh:
		pq.high = append(pq.high, job)
	case PriorityNormal:
		pq.normal = append(pq.normal, job)
	case PriorityLow:
		pq.low = append(pq.low, job)
	}
}

func (pq *PriorityQueue) Dequeue() (*Job, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if len(pq.critical) > 0 {
		job := pq.critical[0]
		pq.critical = pq.critical[1:]
		return job, true
	}
	if len(pq.high) > 0 {
		job := pq.high[0]
		pq.high = pq.high[1:]
		return job, true
	}
	if len(pq.normal) > 0 {
		job := pq.normal[0]
		pq.normal = pq.normal[1:]
		return job, true
	}
	if len(pq.low) > 0 {
		job := pq.low[0]
		pq.low = pq.low[1:]
		return job, true
	}

	return nil, false
}

func (pq *PriorityQueue) Size() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return len(pq.critical) + len(pq.high) + len(pq.normal) + len(pq.low)
}
