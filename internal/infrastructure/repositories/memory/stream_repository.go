package memory

import (
	"context"
	"sync"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
)

type entry struct {
	stream    domain.LiveStream
	expiresAt time.Time
}

// MemoryStreamRepository keeps directory entries in process. Entries expire
// after ttl unless saved again; a zero ttl keeps them until deleted.
type MemoryStreamRepository struct {
	mu      sync.RWMutex
	streams map[domain.RoomID]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStreamRepository(ttl time.Duration) ports.StreamRepository {
	return newMemoryStreamRepository(ttl, time.Now)
}

func newMemoryStreamRepository(ttl time.Duration, now func() time.Time) *MemoryStreamRepository {
	return &MemoryStreamRepository{
		streams: make(map[domain.RoomID]entry),
		ttl:     ttl,
		now:     now,
	}
}

func (r *MemoryStreamRepository) Save(ctx context.Context, stream *domain.LiveStream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := entry{stream: *stream}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.streams[stream.RoomID] = e
	return nil
}

func (r *MemoryStreamRepository) GetByRoom(ctx context.Context, roomID domain.RoomID) (*domain.LiveStream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.streams[roomID]
	if !ok || r.expired(e) {
		return nil, domain.ErrStreamNotFound
	}
	s := e.stream
	return &s, nil
}

func (r *MemoryStreamRepository) Delete(ctx context.Context, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, roomID)
	return nil
}

func (r *MemoryStreamRepository) ListLive(ctx context.Context) ([]*domain.LiveStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := make([]*domain.LiveStream, 0, len(r.streams))
	for id, e := range r.streams {
		if r.expired(e) {
			delete(r.streams, id)
			continue
		}
		s := e.stream
		live = append(live, &s)
	}
	return live, nil
}

func (r *MemoryStreamRepository) expired(e entry) bool {
	return !e.expiresAt.IsZero() && r.now().After(e.expiresAt)
}
