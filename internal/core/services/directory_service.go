package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
	"rillcast/pkg/cache"
	"rillcast/pkg/validation"
)

const liveListKey = "streams:live"

// DirectoryService lists rooms that are currently broadcasting. Listing is
// cached briefly; any write invalidates the cached list.
type DirectoryService struct {
	repo  ports.StreamRepository
	cache *cache.Cache[[]*domain.LiveStream]
	now   func() time.Time
}

func NewDirectoryService(repo ports.StreamRepository, listTTL time.Duration) *DirectoryService {
	return &DirectoryService{
		repo:  repo,
		cache: cache.New[[]*domain.LiveStream](listTTL),
		now:   time.Now,
	}
}

func (s *DirectoryService) Publish(ctx context.Context, roomID domain.RoomID, title string, host *domain.User) (*domain.LiveStream, error) {
	if err := validation.ValidateRoomID(string(roomID)); err != nil {
		return nil, err
	}
	if host == nil {
		return nil, domain.ErrNotAuthenticated
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Live Stream"
	}

	stream := &domain.LiveStream{
		RoomID:    roomID,
		Title:     title,
		Host:      host.Name(),
		HostID:    host.ID,
		StartedAt: s.now(),
	}
	if err := s.repo.Save(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to publish stream: %w", err)
	}

	s.cache.Delete(liveListKey)
	return stream, nil
}

func (s *DirectoryService) Unpublish(ctx context.Context, roomID domain.RoomID) error {
	if err := s.repo.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to unpublish stream: %w", err)
	}
	s.cache.Delete(liveListKey)
	return nil
}

func (s *DirectoryService) UpdateViewers(ctx context.Context, roomID domain.RoomID, viewers int) error {
	stream, err := s.repo.GetByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if stream.Viewers == viewers {
		return nil
	}

	updated := *stream
	updated.Viewers = viewers
	if err := s.repo.Save(ctx, &updated); err != nil {
		return fmt.Errorf("failed to update viewers: %w", err)
	}
	s.cache.Delete(liveListKey)
	return nil
}

func (s *DirectoryService) Get(ctx context.Context, roomID domain.RoomID) (*domain.LiveStream, error) {
	return s.repo.GetByRoom(ctx, roomID)
}

// List returns live streams, newest first.
func (s *DirectoryService) List(ctx context.Context) ([]*domain.LiveStream, error) {
	return s.cache.GetOrSet(ctx, liveListKey, func(ctx context.Context) ([]*domain.LiveStream, error) {
		streams, err := s.repo.ListLive(ctx)
		if err != nil {
			return nil, err
		}
		sort.Slice(streams, func(i, j int) bool {
			return streams[i].StartedAt.After(streams[j].StartedAt)
		})
		return streams, nil
	})
}

func (s *DirectoryService) Stop() {
	s.cache.Stop()
}
