package services

import (
	"context"
	"sync"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockMediaSDK struct {
	mock.Mock
}

func (m *MockMediaSDK) PrepareCamera(ctx context.Context, opts ports.CameraOptions) error {
	args := m.Called(ctx, opts)
	return args.Error(0)
}

func (m *MockMediaSDK) IsCameraOn() bool {
	return m.Called().Bool(0)
}

func (m *MockMediaSDK) ToggleCamera(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMediaSDK) SwitchCamera(ctx context.Context, cameraID string) error {
	return m.Called(ctx, cameraID).Error(0)
}

func (m *MockMediaSDK) Cameras() []domain.Camera {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Camera)
}

func (m *MockMediaSDK) CurrentCamera() *domain.Camera {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.Camera)
}

func (m *MockMediaSDK) IsMicrophoneOn() bool {
	return m.Called().Bool(0)
}

func (m *MockMediaSDK) ToggleMicrophone(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMediaSDK) JoinRoom(ctx context.Context, req ports.JoinRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockMediaSDK) LeaveRoom(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMediaSDK) PeerStatus() domain.PeerStatus {
	return m.Called().Get(0).(domain.PeerStatus)
}

func (m *MockMediaSDK) RemotePeers() []domain.RemotePeer {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.RemotePeer)
}

func (m *MockMediaSDK) PeerToken(ctx context.Context, roomName, displayName string) (string, error) {
	args := m.Called(ctx, roomName, displayName)
	return args.String(0), args.Error(1)
}

func (m *MockMediaSDK) Subscribe(fn func()) func() {
	return func() {}
}

func (m *MockMediaSDK) Close() error {
	return nil
}

type MockPermissionProvider struct {
	mock.Mock
}

func (m *MockPermissionProvider) Query(ctx context.Context, c domain.Capability) (ports.PermissionResponse, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(ports.PermissionResponse), args.Error(1)
}

func (m *MockPermissionProvider) Request(ctx context.Context, c domain.Capability) (ports.PermissionResponse, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(ports.PermissionResponse), args.Error(1)
}

type MockSettingsOpener struct {
	mock.Mock
}

func (m *MockSettingsOpener) OpenSettings(ctx context.Context) {
	m.Called(ctx)
}

// scriptedIdentity lets tests control when SignIn and SignOut complete.
type scriptedIdentity struct {
	signInDelay  time.Duration
	signOutDelay time.Duration
	signInErr    error
	signOutErr   error
	user         *domain.User
}

func (p *scriptedIdentity) SignIn(ctx context.Context) (*domain.User, error) {
	time.Sleep(p.signInDelay)
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return p.user, nil
}

func (p *scriptedIdentity) SignOut(ctx context.Context) error {
	time.Sleep(p.signOutDelay)
	return p.signOutErr
}

type recordingObserver struct {
	mu     sync.Mutex
	joins  []error
	leaves []error
	roles  []Role
}

func (o *recordingObserver) ObserveJoin(role Role, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.roles = append(o.roles, role)
	o.joins = append(o.joins, err)
}

func (o *recordingObserver) ObserveLeave(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leaves = append(o.leaves, err)
}

type memoryStreamRepo struct {
	mu      sync.Mutex
	streams map[domain.RoomID]*domain.LiveStream
	lists   int
}

func newMemoryStreamRepo() *memoryStreamRepo {
	return &memoryStreamRepo{streams: make(map[domain.RoomID]*domain.LiveStream)}
}

func (r *memoryStreamRepo) Save(_ context.Context, s *domain.LiveStream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.streams[s.RoomID] = &c
	return nil
}

func (r *memoryStreamRepo) GetByRoom(_ context.Context, id domain.RoomID) (*domain.LiveStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, domain.ErrStreamNotFound
	}
	c := *s
	return &c, nil
}

func (r *memoryStreamRepo) Delete(_ context.Context, id domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
	return nil
}

func (r *memoryStreamRepo) ListLive(_ context.Context) ([]*domain.LiveStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	out := make([]*domain.LiveStream, 0, len(r.streams))
	for _, s := range r.streams {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}
