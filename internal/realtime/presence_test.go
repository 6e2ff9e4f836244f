package realtime

import (
	"sync"
	"testing"

	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRegistryAcquireReleaseEdges(t *testing.T) {
	reg := NewRegistry()
	id := model.NewIdentity(model.AccountAdmin, 5)

	const n = 10
	firsts, lasts := 0, 0
	for i := 0; i < n; i++ {
		if reg.Acquire(id) {
			firsts++
		}
	}
	assert.Equal(t, n, reg.Count(id))

	for i := 0; i < n; i++ {
		if reg.Release(id) {
			lasts++
		}
	}

	assert.Equal(t, 1, firsts)
	assert.Equal(t, 1, lasts)
	assert.Equal(t, 0, reg.Count(id))
	assert.Empty(t, reg.Online())
}

func TestRegistryReleaseFloorsAtZero(t *testing.T) {
	reg := NewRegistry()
	id := model.NewIdentity(model.AccountCustomer, 1)

	assert.False(t, reg.Release(id))
	assert.Equal(t, 0, reg.Count(id))

	assert.True(t, reg.Acquire(id))
}

func TestRegistryConcurrentEdgesFireOnce(t *testing.T) {
	reg := NewRegistry()
	id := model.NewIdentity(model.AccountCustomer, 7)

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		firsts, lasts int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Acquire(id) {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Release(id) {
				mu.Lock()
				lasts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts)
	assert.Equal(t, 1, lasts)
}

func TestRegistryOnlineIsSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Acquire(model.NewIdentity(model.AccountCustomer, 2))
	reg.Acquire(model.NewIdentity(model.AccountAdmin, 9))
	reg.Acquire(model.NewIdentity(model.AccountAdmin, 1))

	assert.Equal(t, []model.Identity{
		model.NewIdentity(model.AccountAdmin, 1),
		model.NewIdentity(model.AccountAdmin, 9),
		model.NewIdentity(model.AccountCustomer, 2),
	}, reg.Online())
}
