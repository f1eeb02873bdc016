package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	r := NewLocalRegistry(zap.NewNop())
	h := &fakeHandle{}

	_, ok := r.Lookup(1)
	assert.False(t, ok)

	r.Register(1, h)
	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, 1, r.Count())

	r.Unregister(1)
	_, ok = r.Lookup(1)
	assert.False(t, ok)

	// absent user is a no-op
	r.Unregister(1)
	assert.Zero(t, r.Count())
}

func TestRegistry_ReplacementClosesPrevious(t *testing.T) {
	r := NewLocalRegistry(zap.NewNop())
	first, second := &fakeHandle{}, &fakeHandle{}

	r.Register(1, first)
	r.Register(1, second)

	assert.False(t, first.IsOpen(), "superseded handle is closed")
	assert.True(t, second.IsOpen())

	got, _ := r.Lookup(1)
	assert.Same(t, second, got)

	// Re-registering the same handle does not close it.
	r.Register(1, second)
	assert.True(t, second.IsOpen())
}

func TestRegistry_UnregisterHandleIsIdentityAware(t *testing.T) {
	r := NewLocalRegistry(zap.NewNop())
	first, second := &fakeHandle{}, &fakeHandle{}

	r.Register(1, first)
	r.Register(1, second)

	// The displaced handle's teardown must not remove its replacement.
	assert.False(t, r.UnregisterHandle(1, first))
	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, r.UnregisterHandle(1, second))
	_, ok = r.Lookup(1)
	assert.False(t, ok)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewLocalRegistry(zap.NewNop())
	const users = 50

	var wg sync.WaitGroup
	for i := int64(1); i <= users; i++ {
		wg.Add(3)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Register(id, &fakeHandle{})
			}
		}(i)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Lookup(id)
			}
		}(i)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.UnregisterHandle(id, &fakeHandle{})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, users, r.Count())
	for i := int64(1); i <= users; i++ {
		h, ok := r.Lookup(i)
		require.True(t, ok)
		assert.True(t, h.IsOpen(), "only the latest handle survives open")
	}
}
