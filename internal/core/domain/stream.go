package domain

import (
	"time"
)

type RoomID string

// SessionMetadata is a snapshot of the stream metadata store.
type SessionMetadata struct {
	// Broadcaster side
	IsLive      bool   `json:"is_live"`
	RoomID      RoomID `json:"room_id,omitempty"`
	PeerToken   string `json:"peer_token,omitempty"`
	Title       string `json:"title"`
	ViewerCount int    `json:"viewer_count"`

	// Viewer side
	CurrentStreamID string `json:"current_stream_id,omitempty"`
	WatchedRoomID   RoomID `json:"watched_room_id,omitempty"`
}

// LiveStream is a directory entry for a room that is currently broadcasting.
type LiveStream struct {
	RoomID    RoomID    `json:"room_id"`
	Title     string    `json:"title"`
	Host      string    `json:"host"`
	HostID    UserID    `json:"host_id"`
	Viewers   int       `json:"viewers"`
	StartedAt time.Time `json:"started_at"`
}
