package domain

import "encoding/json"

type PeerID string
type TrackID string

// PeerStatus is the connection lifecycle reported by the media SDK.
type PeerStatus string

const (
	PeerStatusIdle       PeerStatus = "idle"
	PeerStatusConnecting PeerStatus = "connecting"
	PeerStatusConnected  PeerStatus = "connected"
	PeerStatusError      PeerStatus = "error"
)

type TrackKind string

const (
	TrackKindVideo TrackKind = "Video"
	TrackKindAudio TrackKind = "Audio"
)

type Track struct {
	ID       TrackID   `json:"id"`
	Kind     TrackKind `json:"type"`
	IsActive bool      `json:"is_active"`
}

// RemotePeer is owned by the media SDK. Metadata is the opaque blob the
// server attaches: {"peer": <join metadata>, "server": {...}}.
type RemotePeer struct {
	ID       PeerID          `json:"id"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Tracks   []Track         `json:"tracks"`
}

// PeerMetadata is what a client attaches when joining a room.
type PeerMetadata struct {
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
}

type Facing string

const (
	FacingFront       Facing = "front"
	FacingBack        Facing = "back"
	FacingUnspecified Facing = "unspecified"
)

type Camera struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Facing Facing `json:"facing_direction"`
}
