package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps a user to at most one live handle.
type Registry interface {
	// Register installs h for userID. A prior handle for the same user is closed.
	Register(userID int64, h Handle)
	// Unregister removes whatever handle userID has. No-op if absent.
	Unregister(userID int64)
	// UnregisterHandle removes userID's mapping only if it still points at h.
	UnregisterHandle(userID int64, h Handle) bool
	Lookup(userID int64) (Handle, bool)
	Count() int
}

// LocalRegistry is the in-process Registry.
type LocalRegistry struct {
	mu      sync.RWMutex
	handles map[int64]Handle
	logger  *zap.Logger
}

func NewLocalRegistry(logger *zap.Logger) *LocalRegistry {
	return &LocalRegistry{
		handles: make(map[int64]Handle),
		logger:  logger.Named("registry"),
	}
}

func (r *LocalRegistry) Register(userID int64, h Handle) {
	r.mu.Lock()
	prev, ok := r.handles[userID]
	r.handles[userID] = h
	r.mu.Unlock()

	// Closed outside the lock: Close may block on the transport.
	if ok && prev != h {
		r.logger.Debug("replacing connection", zap.Int64("user_id", userID))
		_ = prev.Close()
	}
}

func (r *LocalRegistry) Unregister(userID int64) {
	r.mu.Lock()
	delete(r.handles, userID)
	r.mu.Unlock()
}

func (r *LocalRegistry) UnregisterHandle(userID int64, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[userID]; ok && cur == h {
		delete(r.handles, userID)
		return true
	}
	return false
}

func (r *LocalRegistry) Lookup(userID int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[userID]
	return h, ok
}

func (r *LocalRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
