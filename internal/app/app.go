// Package app composes the stores and services into the broadcaster and
// viewer flows the CLI and the control API drive.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
	"rillcast/internal/core/services"
	"rillcast/pkg/validation"

	"go.uber.org/zap"
)

// Metrics is the subset of the Prometheus collector the app reports to.
type Metrics interface {
	services.StreamingObserver
	SetRemotePeers(n int)
}

type Deps struct {
	Identity     ports.IdentityProvider
	Permissions  ports.PermissionProvider
	Settings     ports.SettingsOpener
	SDK          ports.MediaSDK
	Streams      ports.StreamRepository
	Metrics      Metrics
	AppID        string
	ListCacheTTL time.Duration
	Logger       *zap.SugaredLogger
}

type ViewerPhase string

const (
	PhaseIdle       ViewerPhase = "idle"
	PhaseConnecting ViewerPhase = "connecting"
	PhaseWaiting    ViewerPhase = "waiting"
	PhaseLive       ViewerPhase = "live"
	PhaseError      ViewerPhase = "error"
)

// ViewerState is what the watch screen shows.
type ViewerState struct {
	Phase      ViewerPhase    `json:"phase"`
	RoomID     domain.RoomID  `json:"room_id,omitempty"`
	HostPeerID domain.PeerID  `json:"host_peer_id,omitempty"`
	TrackID    domain.TrackID `json:"track_id,omitempty"`
	// InRoom counts the remote peers plus ourselves.
	InRoom int    `json:"in_room"`
	Error  string `json:"error,omitempty"`
}

type App struct {
	Auth        *services.AuthStore
	Session     *services.SessionStore
	Permissions *services.PermissionGate
	Streaming   *services.StreamingService
	Directory   *services.DirectoryService

	sdk         ports.MediaSDK
	metrics     Metrics
	logger      *zap.SugaredLogger
	now         func() time.Time
	unsubscribe func()

	mu   sync.Mutex
	busy bool
	role services.Role
}

func New(deps Deps) *App {
	session := services.NewSessionStore()

	var observer services.StreamingObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}

	a := &App{
		Auth:        services.NewAuthStore(deps.Identity, deps.Logger),
		Session:     session,
		Permissions: services.NewPermissionGate(deps.Permissions, deps.Settings, deps.Logger),
		Streaming:   services.NewStreamingService(deps.SDK, session, deps.AppID, observer, deps.Logger),
		Directory:   services.NewDirectoryService(deps.Streams, deps.ListCacheTTL),
		sdk:         deps.SDK,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
	a.unsubscribe = deps.SDK.Subscribe(a.onSDKChange)
	return a
}

// Role reports whether we are broadcasting, watching or neither ("").
func (a *App) Role() services.Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.role
}

// GoLive starts a broadcast in a fresh room and lists it in the directory.
func (a *App) GoLive(ctx context.Context, title string) (domain.RoomID, error) {
	user := a.Auth.CurrentUser()
	if user == nil {
		return "", domain.ErrNotAuthenticated
	}
	if err := validation.ValidateTitle(title); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !a.ensurePermissions(ctx) {
		return "", domain.ErrPermissionsDenied
	}
	if err := a.begin(); err != nil {
		return "", err
	}

	room := domain.RoomID(fmt.Sprintf("stream-%s-%d", user.ID, a.now().UnixMilli()))
	name := user.Name() + "-host"

	a.Session.SetTitle(title)
	if err := a.Streaming.StartBroadcast(ctx, string(room), name); err != nil {
		a.end("")
		return "", err
	}
	a.end(services.RoleHost)

	if _, err := a.Directory.Publish(ctx, room, title, user); err != nil {
		a.logger.Errorw("failed to list broadcast in directory", "room", room, "error", err)
	}
	a.logger.Infow("live", "room", room, "title", title)
	return room, nil
}

// Watch joins roomID as a viewer.
func (a *App) Watch(ctx context.Context, roomID domain.RoomID) error {
	user := a.Auth.CurrentUser()
	if user == nil {
		return domain.ErrNotAuthenticated
	}
	if err := validation.ValidateRoomID(string(roomID)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := a.begin(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s-viewer-%d", user.Name(), a.now().UnixMilli())

	a.Session.JoinStream(string(roomID), roomID)
	if err := a.Streaming.JoinAsViewer(ctx, string(roomID), name); err != nil {
		a.Session.LeaveStream()
		a.end("")
		return err
	}
	a.end(services.RoleViewer)
	return nil
}

// Leave exits the current room. A broadcast is removed from the directory
// even if the SDK reports a leave error.
func (a *App) Leave(ctx context.Context) {
	snapshot := a.Session.Snapshot()

	a.Streaming.LeaveRoom(ctx)
	if snapshot.IsLive {
		if err := a.Directory.Unpublish(ctx, snapshot.RoomID); err != nil {
			a.logger.Warnw("failed to remove broadcast from directory", "room", snapshot.RoomID, "error", err)
		}
	}
	a.Session.LeaveStream()

	a.mu.Lock()
	a.role = ""
	a.mu.Unlock()
}

func (a *App) ViewerState() ViewerState {
	st := a.Streaming.State()
	vs := ViewerState{
		RoomID: a.Session.Snapshot().WatchedRoomID,
		InRoom: len(st.RemotePeers) + 1,
		Error:  st.Error,
	}

	switch {
	case st.Error != "":
		vs.Phase = PhaseError
	case st.IsConnecting:
		vs.Phase = PhaseConnecting
	case !st.IsConnected:
		if vs.RoomID == "" {
			vs.Phase = PhaseIdle
		} else {
			vs.Phase = PhaseConnecting
		}
	default:
		hostID, trackID, ok := domain.ResolveHostVideo(st.RemotePeers)
		vs.HostPeerID = hostID
		if ok {
			vs.Phase = PhaseLive
			vs.TrackID = trackID
		} else {
			vs.Phase = PhaseWaiting
		}
	}
	return vs
}

func (a *App) Close() error {
	a.unsubscribe()
	a.Directory.Stop()
	return a.sdk.Close()
}

func (a *App) ensurePermissions(ctx context.Context) bool {
	if a.Permissions.State().AllGranted {
		return true
	}
	if a.Permissions.CheckPermissions(ctx) {
		return true
	}
	return a.Permissions.RequestPermissions(ctx)
}

func (a *App) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	status := a.sdk.PeerStatus()
	if a.busy || a.role != "" || status == domain.PeerStatusConnected || status == domain.PeerStatusConnecting {
		return domain.ErrAlreadyConnected
	}
	a.busy = true
	return nil
}

func (a *App) end(role services.Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.busy = false
	a.role = role
}

// onSDKChange mirrors the room size into the broadcaster's viewer count.
func (a *App) onSDKChange() {
	n := len(a.sdk.RemotePeers())
	if a.metrics != nil {
		a.metrics.SetRemotePeers(n)
	}

	snapshot := a.Session.Snapshot()
	if !snapshot.IsLive || snapshot.ViewerCount == n {
		return
	}
	a.Session.UpdateViewerCount(n)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Directory.UpdateViewers(ctx, snapshot.RoomID, n); err != nil {
		a.logger.Debugw("failed to update directory viewers", "room", snapshot.RoomID, "error", err)
	}
}
