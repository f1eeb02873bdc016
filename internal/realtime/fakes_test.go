package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// fakeHandle records frames in memory.
type fakeHandle struct {
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	sendErr error
}

func (f *fakeHandle) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandle) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeHandle) Frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

// participantSet says yes for the listed (conversation, user) pairs.
type participantSet map[uuid.UUID][]int64

func (p participantSet) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error) {
	for _, id := range p[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
