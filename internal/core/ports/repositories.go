package ports

import (
	"context"

	"rillcast/internal/core/domain"
)

type StreamRepository interface {
	Save(ctx context.Context, stream *domain.LiveStream) error
	GetByRoom(ctx context.Context, roomID domain.RoomID) (*domain.LiveStream, error)
	Delete(ctx context.Context, roomID domain.RoomID) error
	ListLive(ctx context.Context) ([]*domain.LiveStream, error)
}
