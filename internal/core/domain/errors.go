package domain

import "errors"

var (
	ErrPeerTokenUnavailable = errors.New("failed to get peer token")
	ErrNotConnected         = errors.New("not connected to a room")
	ErrRoomNameRequired     = errors.New("room name is required")
	ErrDisplayNameRequired  = errors.New("display name is required")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotAuthenticated     = errors.New("not signed in")
	ErrPermissionsDenied    = errors.New("camera and microphone permissions are required")
	ErrStreamNotFound       = errors.New("stream not found")
	ErrSignalClosed         = errors.New("signaling connection closed")
	ErrUnknownCamera        = errors.New("unknown camera")
	ErrAlreadyConnected     = errors.New("already connected or connecting to a room")
	ErrInvalidInput         = errors.New("invalid input")
)
