package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IncMessagesScanned()
			}
			r.IncJoinsTracked()
		}()
	}
	wg.Wait()

	c := r.Snapshot()
	assert.Equal(t, uint64(1000), c.MessagesScanned)
	assert.Equal(t, uint64(10), c.JoinsTracked)
	assert.Zero(t, c.ActionsQueued)
}

func TestCollectSystem(t *testing.T) {
	stats, err := CollectSystem()
	require.NoError(t, err)
	assert.Greater(t, stats.MemoryUsedMB, uint64(0))
}
