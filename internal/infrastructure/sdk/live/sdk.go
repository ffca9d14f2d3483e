// Package live is the media SDK backed by a signaling server over websocket
// and a pion PeerConnection. Local camera and microphone are synthetic
// sources.
package live

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
	"rillcast/internal/infrastructure/sdk/listeners"
	"rillcast/pkg/tracing"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

type Config struct {
	SignalURL      string
	ICEServers     []webrtc.ICEServer
	Cameras        []domain.Camera
	FrameInterval  time.Duration
	JoinTimeout    time.Duration
	PLIInterval    time.Duration
	MaxMessageSize int64
}

// SignalObserver counts signaling traffic.
type SignalObserver interface {
	ObserveSignal(direction, msgType string)
}

type SDK struct {
	cfg       Config
	sandbox   ports.Sandbox
	observer  SignalObserver
	logger    *zap.SugaredLogger
	listeners listeners.Set
	streamID  string

	mu       sync.Mutex
	status   domain.PeerStatus
	cameraOn bool
	micOn    bool
	current  *domain.Camera
	video    *syntheticSource
	audio    *syntheticSource
	session  *roomSession
}

type roomSession struct {
	signal *signalClient
	pc     *webrtc.PeerConnection
	peerID domain.PeerID
	room   string
	peers  map[domain.PeerID]domain.RemotePeer // guarded by SDK.mu
	cancel context.CancelFunc
	done   chan struct{}

	// dispatch goroutine only
	pendingCandidates []webrtc.ICECandidateInit
}

var _ ports.MediaSDK = (*SDK)(nil)

func New(cfg Config, sandbox ports.Sandbox, observer SignalObserver, logger *zap.SugaredLogger) *SDK {
	return &SDK{
		cfg:      cfg,
		sandbox:  sandbox,
		observer: observer,
		logger:   logger,
		streamID: "rillcast-" + uuid.NewString(),
		status:   domain.PeerStatusIdle,
	}
}

func (s *SDK) PrepareCamera(ctx context.Context, opts ports.CameraOptions) error {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.listeners.Notify()
	}()

	if s.audio == nil {
		audio, err := newAudioSource("audio-"+uuid.NewString(), s.streamID, s.logger)
		if err != nil {
			return fmt.Errorf("create microphone source: %w", err)
		}
		audio.start()
		s.audio = audio
	}
	s.micOn = true
	s.audio.setEnabled(true)

	if !opts.CameraEnabled || len(s.cfg.Cameras) == 0 {
		return nil
	}
	if s.video == nil {
		video, err := newVideoSource("video-"+uuid.NewString(), s.streamID, s.cfg.FrameInterval, s.logger)
		if err != nil {
			return fmt.Errorf("create camera source: %w", err)
		}
		video.start()
		s.video = video
	}
	if s.current == nil {
		cam := s.cfg.Cameras[0]
		s.current = &cam
	}
	s.cameraOn = true
	s.video.setEnabled(true)
	return nil
}

func (s *SDK) IsCameraOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraOn
}

func (s *SDK) ToggleCamera(ctx context.Context) error {
	s.mu.Lock()
	if s.video == nil {
		s.mu.Unlock()
		return s.PrepareCamera(ctx, ports.CameraOptions{CameraEnabled: true})
	}
	s.cameraOn = !s.cameraOn
	s.video.setEnabled(s.cameraOn)
	update := domain.Track{ID: domain.TrackID(s.video.track.ID()), Kind: domain.TrackKindVideo, IsActive: s.cameraOn}
	sess := s.session
	s.mu.Unlock()

	s.listeners.Notify()
	return s.sendTrackUpdate(sess, update)
}

func (s *SDK) SwitchCamera(ctx context.Context, cameraID string) error {
	for _, cam := range s.cfg.Cameras {
		if cam.ID != cameraID {
			continue
		}
		c := cam
		s.mu.Lock()
		s.current = &c
		if s.video != nil {
			s.video.requestKeyframe()
		}
		s.mu.Unlock()
		s.logger.Infow("camera switched", "camera_id", cameraID, "facing", c.Facing)
		s.listeners.Notify()
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownCamera, cameraID)
}

func (s *SDK) Cameras() []domain.Camera {
	return append([]domain.Camera{}, s.cfg.Cameras...)
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
	if s.audio == nil {
		s.mu.Unlock()
		return s.PrepareCamera(ctx, ports.CameraOptions{CameraEnabled: false})
	}
	s.micOn = !s.micOn
	s.audio.setEnabled(s.micOn)
	update := domain.Track{ID: domain.TrackID(s.audio.track.ID()), Kind: domain.TrackKindAudio, IsActive: s.micOn}
	sess := s.session
	s.mu.Unlock()

	s.listeners.Notify()
	return s.sendTrackUpdate(sess, update)
}

// JoinRoom dials the signaling server, waits for room_joined and starts
// negotiation. It returns once the room is joined; media may still be
// connecting. A session left in the error state is torn down first.
func (s *SDK) JoinRoom(ctx context.Context, req ports.JoinRequest) error {
	s.mu.Lock()
	if s.status == domain.PeerStatusConnecting || (s.session != nil && s.status != domain.PeerStatusError) {
		s.mu.Unlock()
		return nil
	}
	stale := s.session
	s.session = nil
	s.status = domain.PeerStatusConnecting
	video, audio := s.video, s.audio
	s.mu.Unlock()

	if stale != nil {
		s.logger.Infow("discarding failed room session", "room", stale.room)
		if err := s.closeSession(ctx, stale); err != nil {
			s.logger.Debugw("failed to close stale session", "room", stale.room, "error", err)
		}
	}
	s.listeners.Notify()

	joinCtx, cancel := context.WithTimeout(ctx, s.cfg.JoinTimeout)
	defer cancel()

	sess, err := s.connect(joinCtx, req, video, audio)
	if err != nil {
		s.setStatus(domain.PeerStatusError)
		return err
	}

	s.mu.Lock()
	s.session = sess
	s.status = domain.PeerStatusConnected
	s.mu.Unlock()

	go s.dispatch(sess)
	s.logger.Infow("joined room", "room", sess.room, "peer_id", sess.peerID, "remote_peers", len(sess.peers))
	s.listeners.Notify()
	return nil
}

func (s *SDK) connect(ctx context.Context, req ports.JoinRequest, video, audio *syntheticSource) (*roomSession, error) {
	sig, err := dialSignal(ctx, s.cfg.SignalURL, req.PeerToken, s.cfg.MaxMessageSize, s.logger)
	if err != nil {
		return nil, err
	}

	if err := s.send(sig, MsgJoinRoom, JoinPayload{Token: req.PeerToken, AppID: req.AppID, Metadata: req.Metadata}); err != nil {
		sig.close()
		return nil, err
	}

	joined, err := s.awaitJoined(ctx, sig)
	if err != nil {
		sig.close()
		return nil, err
	}

	pc, err := s.newPeerConnection()
	if err != nil {
		sig.close()
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &roomSession{
		signal: sig,
		pc:     pc,
		peerID: joined.PeerID,
		room:   joined.Room,
		peers:  make(map[domain.PeerID]domain.RemotePeer, len(joined.Peers)),
		cancel: sessCancel,
		done:   make(chan struct{}),
	}
	for _, p := range joined.Peers {
		sess.peers[p.ID] = p
	}

	fail := func(err error) (*roomSession, error) {
		sessCancel()
		_ = pc.Close()
		sig.close()
		return nil, err
	}

	if err := s.addLocalMedia(sessCtx, pc, video, audio); err != nil {
		return fail(err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := s.send(sig, MsgICECandidate, ICECandidatePayload{Candidate: c.ToJSON()}); err != nil {
			s.logger.Debugw("failed to send ice candidate", "error", err)
		}
	})
	pc.OnTrack(s.handleRemoteTrack(sessCtx, pc))
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Infow("peer connection state changed", "room", sess.room, "state", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			s.setStatus(domain.PeerStatusError)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(fmt.Errorf("create offer: %w", err))
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fail(fmt.Errorf("set local description: %w", err))
	}
	if err := s.send(sig, MsgOffer, SDPPayload{SDP: offer.SDP}); err != nil {
		return fail(err)
	}

	return sess, nil
}

func (s *SDK) awaitJoined(ctx context.Context, sig *signalClient) (*RoomJoinedPayload, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for room_joined: %w", ctx.Err())
		case msg, ok := <-sig.messages():
			if !ok {
				return nil, domain.ErrSignalClosed
			}
			s.observe("in", msg.Type)
			_, span := tracing.TraceSignalMessage(ctx, "in", msg.Type)
			span.End()

			switch msg.Type {
			case MsgRoomJoined:
				var p RoomJoinedPayload
				if err := decode(msg, &p); err != nil {
					return nil, err
				}
				return &p, nil
			case MsgError:
				var p ErrorPayload
				_ = decode(msg, &p)
				return nil, fmt.Errorf("join rejected: %s", p.Message)
			default:
				s.logger.Debugw("ignoring message before room_joined", "type", msg.Type)
			}
		}
	}
}

func (s *SDK) newPeerConnection() (*webrtc.PeerConnection, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	settingEngine := webrtc.SettingEngine{}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   s.cfg.ICEServers,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	})
}

// addLocalMedia sends prepared sources and receives everything else.
func (s *SDK) addLocalMedia(ctx context.Context, pc *webrtc.PeerConnection, video, audio *syntheticSource) error {
	recvonly := webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}

	if video != nil {
		sender, err := pc.AddTrack(video.track)
		if err != nil {
			return fmt.Errorf("add video track: %w", err)
		}
		go s.readSenderRTCP(ctx, sender, video)
	} else if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, recvonly); err != nil {
		return fmt.Errorf("add video transceiver: %w", err)
	}

	if audio != nil {
		sender, err := pc.AddTrack(audio.track)
		if err != nil {
			return fmt.Errorf("add audio track: %w", err)
		}
		go s.readSenderRTCP(ctx, sender, nil)
	} else if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, recvonly); err != nil {
		return fmt.Errorf("add audio transceiver: %w", err)
	}
	return nil
}

// readSenderRTCP answers keyframe requests for the local video source.
func (s *SDK) readSenderRTCP(ctx context.Context, sender *webrtc.RTPSender, video *syntheticSource) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		if video == nil {
			continue
		}
		for _, p := range packets {
			switch p.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				video.requestKeyframe()
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *SDK) handleRemoteTrack(ctx context.Context, pc *webrtc.PeerConnection) func(*webrtc.TrackRemote, *webrtc.RTPReceiver) {
	return func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		s.logger.Infow("receiving remote track",
			"track_id", track.ID(),
			"stream_id", track.StreamID(),
			"codec", track.Codec().MimeType,
		)

		if track.Kind() == webrtc.RTPCodecTypeVideo && s.cfg.PLIInterval > 0 {
			go s.requestKeyframes(ctx, pc, track.SSRC())
		}

		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	}
}

// requestKeyframes sends a PLI right away and then every PLIInterval.
func (s *SDK) requestKeyframes(ctx context.Context, pc *webrtc.PeerConnection, ssrc webrtc.SSRC) {
	ticker := time.NewTicker(s.cfg.PLIInterval)
	defer ticker.Stop()

	for {
		if err := pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(ssrc)}}); err != nil {
			s.logger.Debugw("failed to send PLI", "ssrc", ssrc, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *SDK) dispatch(sess *roomSession) {
	defer close(sess.done)

	for msg := range sess.signal.messages() {
		s.observe("in", msg.Type)
		ctx, span := tracing.TraceSignalMessage(context.Background(), "in", msg.Type)
		if err := s.handleMessage(sess, msg); err != nil {
			tracing.RecordError(ctx, err)
			s.logger.Warnw("failed to handle signal message", "type", msg.Type, "error", err)
		}
		span.End()
	}

	s.mu.Lock()
	dropped := s.session == sess
	if dropped {
		s.status = domain.PeerStatusError
	}
	s.mu.Unlock()

	if dropped {
		s.logger.Errorw("signaling connection dropped", "room", sess.room, "error", sess.signal.closeErr())
		s.listeners.Notify()
	}
}

func (s *SDK) handleMessage(sess *roomSession, msg SignalMessage) error {
	switch msg.Type {
	case MsgAnswer:
		var p SDPPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if err := sess.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
			return fmt.Errorf("set remote answer: %w", err)
		}
		return s.flushCandidates(sess)

	case MsgOffer:
		var p SDPPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if err := sess.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}); err != nil {
			return fmt.Errorf("set remote offer: %w", err)
		}
		answer, err := sess.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := sess.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local answer: %w", err)
		}
		if err := s.send(sess.signal, MsgAnswer, SDPPayload{SDP: answer.SDP}); err != nil {
			return err
		}
		return s.flushCandidates(sess)

	case MsgICECandidate:
		var p ICECandidatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if sess.pc.RemoteDescription() == nil {
			sess.pendingCandidates = append(sess.pendingCandidates, p.Candidate)
			return nil
		}
		return sess.pc.AddICECandidate(p.Candidate)

	case MsgPeerJoined:
		var p PeerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		s.updatePeers(sess, func(peers map[domain.PeerID]domain.RemotePeer) {
			peers[p.Peer.ID] = p.Peer
		})

	case MsgPeerLeft:
		var p PeerLeftPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		s.updatePeers(sess, func(peers map[domain.PeerID]domain.RemotePeer) {
			delete(peers, p.PeerID)
		})

	case MsgPeersList:
		var p PeersListPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		s.updatePeers(sess, func(peers map[domain.PeerID]domain.RemotePeer) {
			for id := range peers {
				delete(peers, id)
			}
			for _, peer := range p.Peers {
				peers[peer.ID] = peer
			}
		})

	case MsgTrackUpdate:
		var p TrackUpdatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		s.updatePeers(sess, func(peers map[domain.PeerID]domain.RemotePeer) {
			peer, ok := peers[p.PeerID]
			if !ok {
				return
			}
			peer.Tracks = upsertTrack(peer.Tracks, p.Track)
			peers[p.PeerID] = peer
		})

	case MsgError:
		var p ErrorPayload
		_ = decode(msg, &p)
		s.logger.Warnw("signal server reported an error", "room", sess.room, "message", p.Message)

	default:
		s.logger.Debugw("unknown signal message", "type", msg.Type)
	}
	return nil
}

func (s *SDK) flushCandidates(sess *roomSession) error {
	pending := sess.pendingCandidates
	sess.pendingCandidates = nil
	for _, c := range pending {
		if err := sess.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("add ice candidate: %w", err)
		}
	}
	return nil
}

func (s *SDK) updatePeers(sess *roomSession, fn func(map[domain.PeerID]domain.RemotePeer)) {
	s.mu.Lock()
	fn(sess.peers)
	s.mu.Unlock()
	s.listeners.Notify()
}

func upsertTrack(tracks []domain.Track, t domain.Track) []domain.Track {
	out := append([]domain.Track(nil), tracks...)
	for i := range out {
		if out[i].ID == t.ID {
			out[i] = t
			return out
		}
	}
	return append(out, t)
}

// LeaveRoom tells the server, closes the connection and resets to idle.
// Leaving when not in a room succeeds.
func (s *SDK) LeaveRoom(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.status = domain.PeerStatusIdle
	s.mu.Unlock()

	if sess == nil {
		s.listeners.Notify()
		return nil
	}

	sendErr := s.send(sess.signal, MsgLeaveRoom, nil)
	if errors.Is(sendErr, domain.ErrSignalClosed) {
		sendErr = nil
	}
	pcErr := s.closeSession(ctx, sess)

	s.logger.Infow("left room", "room", sess.room)
	s.listeners.Notify()
	return errors.Join(sendErr, pcErr)
}

// closeSession stops a session that is no longer s.session and waits for
// its dispatch loop to exit.
func (s *SDK) closeSession(ctx context.Context, sess *roomSession) error {
	sess.cancel()
	err := sess.pc.Close()
	_ = sess.signal.close()

	select {
	case <-sess.done:
	case <-ctx.Done():
	}
	return err
}

func (s *SDK) PeerStatus() domain.PeerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RemotePeers returns peers ordered by id.
func (s *SDK) RemotePeers() []domain.RemotePeer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return []domain.RemotePeer{}
	}
	out := make([]domain.RemotePeer, 0, len(s.session.peers))
	for _, p := range s.session.peers {
		p.Tracks = append([]domain.Track(nil), p.Tracks...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *SDK) PeerToken(ctx context.Context, roomName, displayName string) (string, error) {
	if s.sandbox == nil {
		return "", nil
	}
	return s.sandbox.PeerToken(ctx, roomName, displayName)
}

func (s *SDK) Subscribe(fn func()) func() {
	return s.listeners.Add(fn)
}

func (s *SDK) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.LeaveRoom(ctx)

	s.mu.Lock()
	video, audio := s.video, s.audio
	s.video, s.audio = nil, nil
	s.cameraOn, s.micOn = false, false
	s.mu.Unlock()

	if video != nil {
		video.close()
	}
	if audio != nil {
		audio.close()
	}
	s.listeners.Clear()
	return err
}

func (s *SDK) sendTrackUpdate(sess *roomSession, track domain.Track) error {
	if sess == nil {
		return nil
	}
	return s.send(sess.signal, MsgTrackUpdate, TrackUpdatePayload{PeerID: sess.peerID, Track: track})
}

func (s *SDK) send(sig *signalClient, msgType string, payload interface{}) error {
	ctx, span := tracing.TraceSignalMessage(context.Background(), "out", msgType)
	defer span.End()

	if err := sig.send(msgType, payload); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	s.observe("out", msgType)
	return nil
}

func (s *SDK) observe(direction, msgType string) {
	if s.observer != nil {
		s.observer.ObserveSignal(direction, msgType)
	}
}

func (s *SDK) setStatus(st domain.PeerStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.listeners.Notify()
}
