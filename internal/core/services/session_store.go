package services

import (
	"sync"

	"rillcast/internal/core/domain"
)

// SessionStore holds stream metadata for the running app. Every command is an
// idempotent overwrite; IsLive is set and cleared together with RoomID and
// PeerToken.
type SessionStore struct {
	mu    sync.RWMutex
	state domain.SessionMetadata

	watchers []func(domain.SessionMetadata)
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Snapshot returns a copy of the current state.
func (s *SessionStore) Snapshot() domain.SessionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Watch registers fn to receive the state after every command.
func (s *SessionStore) Watch(fn func(domain.SessionMetadata)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *SessionStore) SetTitle(title string) {
	s.update(func(st *domain.SessionMetadata) {
		st.Title = title
	})
}

func (s *SessionStore) StartBroadcast(roomID domain.RoomID, peerToken string) {
	s.update(func(st *domain.SessionMetadata) {
		st.RoomID = roomID
		st.PeerToken = peerToken
		st.IsLive = roomID != "" && peerToken != ""
	})
}

func (s *SessionStore) EndBroadcast() {
	s.update(func(st *domain.SessionMetadata) {
		st.IsLive = false
		st.RoomID = ""
		st.PeerToken = ""
		st.Title = ""
		st.ViewerCount = 0
	})
}

func (s *SessionStore) UpdateViewerCount(count int) {
	if count < 0 {
		count = 0
	}
	s.update(func(st *domain.SessionMetadata) {
		st.ViewerCount = count
	})
}

func (s *SessionStore) JoinStream(streamID string, roomID domain.RoomID) {
	s.update(func(st *domain.SessionMetadata) {
		st.CurrentStreamID = streamID
		st.WatchedRoomID = roomID
	})
}

func (s *SessionStore) LeaveStream() {
	s.update(func(st *domain.SessionMetadata) {
		st.CurrentStreamID = ""
		st.WatchedRoomID = ""
	})
}

func (s *SessionStore) update(fn func(*domain.SessionMetadata)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	watchers := append([]func(domain.SessionMetadata){}, s.watchers...)
	s.mu.Unlock()

	for _, w := range watchers {
		w(snapshot)
	}
}
