package usecase

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanGuardConcurrentAcquireAdmitsOne(t *testing.T) {
	for round := 0; round < 50; round++ {
		g := NewScanGuard(NewScanStatus())

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if g.TryAcquire() {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load(), "round %d", round)
	}
}

func TestScanGuardReleaseOncePerAcquisition(t *testing.T) {
	status := NewScanStatus()
	g := NewScanGuard(status)

	assert.True(t, g.TryAcquire())
	assert.True(t, status.Get().IsScanning)

	g.Release()
	assert.False(t, status.Get().IsScanning)

	assert.True(t, g.TryAcquire())
	g.Release()
	g.Release()
	assert.False(t, status.Get().IsScanning)
	assert.True(t, g.TryAcquire(), "extra release must not leave the guard stuck")
}

func TestScanGuardRejectionLeavesStatus(t *testing.T) {
	status := NewScanStatus()
	g := NewScanGuard(status)

	assert.True(t, g.TryAcquire())
	status.Update(40, "Processing BBB... (2/5)", "BBB")
	status.AddError("earlier")
	before := status.Get()

	assert.False(t, g.TryAcquire())
	assert.Equal(t, before, status.Get())
}
