package raid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSurgeOnFifthJoin(t *testing.T) {
	d := NewDetector(10*time.Second, 5)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		assert.False(t, d.OnJoin("c1", base.Add(time.Duration(i)*time.Second)))
	}
	assert.True(t, d.OnJoin("c1", base.Add(4*time.Second)))
}

func TestSpreadJoinsNeverSurge(t *testing.T) {
	d := NewDetector(10*time.Second, 5)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// One join every 3 seconds keeps at most 4 in any 10s window.
	for i := 0; i < 20; i++ {
		assert.False(t, d.OnJoin("c1", base.Add(time.Duration(i*3)*time.Second)))
	}
}

func TestCommunitiesIndependent(t *testing.T) {
	d := NewDetector(10*time.Second, 5)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		d.OnJoin("c1", base)
	}
	assert.False(t, d.OnJoin("c2", base))
	assert.True(t, d.OnJoin("c1", base))
}

func TestTryLockOncePerSurge(t *testing.T) {
	d := NewDetector(10*time.Second, 5)

	assert.True(t, d.TryLock("c1"))
	assert.False(t, d.TryLock("c1"))
	assert.True(t, d.Locked("c1"))

	assert.True(t, d.Unlock("c1"))
	assert.False(t, d.Unlock("c1"))
	assert.False(t, d.Locked("c1"))

	assert.True(t, d.TryLock("c1"))
}
