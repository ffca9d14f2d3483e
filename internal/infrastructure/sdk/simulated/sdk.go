// Package simulated is an in-process media SDK. Instances sharing a Hub see
// each other as remote peers, which makes it usable both for local demos
// and as a deterministic test double.
package simulated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
	"rillcast/internal/infrastructure/sdk/listeners"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid peer token")

type Options struct {
	Hub     *Hub
	Sandbox ports.Sandbox
	Cameras []domain.Camera
	// JoinLatency delays every JoinRoom.
	JoinLatency time.Duration
	// JoinErr, when set, makes every JoinRoom fail with it.
	JoinErr error
	// LeaveErr, when set, makes every LeaveRoom fail with it.
	LeaveErr error
}

type SDK struct {
	opts      Options
	listeners listeners.Set

	mu       sync.Mutex
	status   domain.PeerStatus
	cameraOn bool
	micOn    bool
	current  *domain.Camera
	peerID   domain.PeerID
	room     string
	videoID  domain.TrackID
	audioID  domain.TrackID
	tokens   map[string]string // token -> room
}

var _ ports.MediaSDK = (*SDK)(nil)

func New(opts Options) *SDK {
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	return &SDK{
		opts:   opts,
		status: domain.PeerStatusIdle,
		tokens: make(map[string]string),
	}
}

func (s *SDK) PrepareCamera(ctx context.Context, opts ports.CameraOptions) error {
	s.mu.Lock()
	if opts.CameraEnabled && len(s.opts.Cameras) > 0 {
		if s.current == nil {
			cam := s.opts.Cameras[0]
			s.current = &cam
		}
		s.cameraOn = true
	}
	s.micOn = true
	s.mu.Unlock()

	s.publishTracks()
	s.listeners.Notify()
	return nil
}

func (s *SDK) IsCameraOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraOn
}

func (s *SDK) ToggleCamera(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil && len(s.opts.Cameras) > 0 {
		cam := s.opts.Cameras[0]
		s.current = &cam
	}
	s.cameraOn = !s.cameraOn && s.current != nil
	s.mu.Unlock()

	s.publishTracks()
	s.listeners.Notify()
	return nil
}

func (s *SDK) SwitchCamera(ctx context.Context, cameraID string) error {
	for _, cam := range s.opts.Cameras {
		if cam.ID == cameraID {
			c := cam
			s.mu.Lock()
			s.current = &c
			s.mu.Unlock()
			s.listeners.Notify()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownCamera, cameraID)
}

func (s *SDK) Cameras() []domain.Camera {
	return append([]domain.Camera{}, s.opts.Cameras...)
}

func (s *SDK) CurrentCamera() *domain.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

func (s *SDK) IsMicrophoneOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.micOn
}

func (s *SDK) ToggleMicrophone(ctx context.Context) error {
	s.mu.Lock()
	s.micOn = !s.micOn
	s.mu.Unlock()

	s.publishTracks()
	s.listeners.Notify()
	return nil
}

func (s *SDK) JoinRoom(ctx context.Context, req ports.JoinRequest) error {
	s.mu.Lock()
	room, ok := s.tokens[req.PeerToken]
	if !ok || req.PeerToken == "" {
		s.mu.Unlock()
		return ErrInvalidToken
	}
	s.status = domain.PeerStatusConnecting
	s.mu.Unlock()
	s.listeners.Notify()

	if s.opts.JoinLatency > 0 {
		timer := time.NewTimer(s.opts.JoinLatency)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setStatus(domain.PeerStatusError)
			return ctx.Err()
		case <-timer.C:
		}
	}
	if s.opts.JoinErr != nil {
		s.setStatus(domain.PeerStatusError)
		return s.opts.JoinErr
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"peer":   req.Metadata,
		"server": map[string]string{"room": room},
	})
	if err != nil {
		s.setStatus(domain.PeerStatusError)
		return fmt.Errorf("encode metadata: %w", err)
	}

	s.mu.Lock()
	s.peerID = domain.PeerID(uuid.NewString())
	s.room = room
	s.videoID = domain.TrackID(uuid.NewString())
	s.audioID = domain.TrackID(uuid.NewString())
	s.status = domain.PeerStatusConnected
	m := &member{id: s.peerID, metadata: metadata, tracks: s.tracksLocked(), notify: s.listeners.Notify}
	s.mu.Unlock()

	s.opts.Hub.join(room, m)
	s.listeners.Notify()
	return nil
}

func (s *SDK) LeaveRoom(ctx context.Context) error {
	if s.opts.LeaveErr != nil {
		return s.opts.LeaveErr
	}

	s.mu.Lock()
	room, id := s.room, s.peerID
	s.room, s.peerID = "", ""
	s.status = domain.PeerStatusIdle
	s.mu.Unlock()

	if room != "" {
		s.opts.Hub.leave(room, id)
	}
	s.listeners.Notify()
	return nil
}

func (s *SDK) PeerStatus() domain.PeerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SDK) RemotePeers() []domain.RemotePeer {
	s.mu.Lock()
	room, id := s.room, s.peerID
	s.mu.Unlock()

	if room == "" {
		return []domain.RemotePeer{}
	}
	return s.opts.Hub.peers(room, id)
}

// PeerToken delegates to the configured sandbox and remembers which room the
// token belongs to.
func (s *SDK) PeerToken(ctx context.Context, roomName, displayName string) (string, error) {
	if s.opts.Sandbox == nil {
		return "", nil
	}
	token, err := s.opts.Sandbox.PeerToken(ctx, roomName, displayName)
	if err != nil || token == "" {
		return token, err
	}

	s.mu.Lock()
	s.tokens[token] = roomName
	s.mu.Unlock()
	return token, nil
}

func (s *SDK) Subscribe(fn func()) func() {
	return s.listeners.Add(fn)
}

func (s *SDK) Close() error {
	err := s.LeaveRoom(context.Background())
	s.listeners.Clear()
	return err
}

func (s *SDK) setStatus(st domain.PeerStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.listeners.Notify()
}

func (s *SDK) tracksLocked() []domain.Track {
	var tracks []domain.Track
	if s.current != nil {
		tracks = append(tracks, domain.Track{ID: s.videoID, Kind: domain.TrackKindVideo, IsActive: s.cameraOn})
	}
	if s.micOn {
		tracks = append(tracks, domain.Track{ID: s.audioID, Kind: domain.TrackKindAudio, IsActive: true})
	}
	return tracks
}

func (s *SDK) publishTracks() {
	s.mu.Lock()
	room, id := s.room, s.peerID
	tracks := s.tracksLocked()
	s.mu.Unlock()

	if room != "" {
		s.opts.Hub.updateTracks(room, id, tracks)
	}
}
