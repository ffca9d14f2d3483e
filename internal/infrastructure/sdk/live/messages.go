package live

import (
	"encoding/json"
	"fmt"

	"rillcast/internal/core/domain"

	"github.com/pion/webrtc/v3"
)

// Signaling message types.
const (
	MsgJoinRoom     = "join_room"
	MsgLeaveRoom    = "leave_room"
	MsgOffer        = "offer"
	MsgAnswer       = "answer"
	MsgICECandidate = "ice_candidate"
	MsgTrackUpdate  = "track_update"
	MsgRoomJoined   = "room_joined"
	MsgPeerJoined   = "peer_joined"
	MsgPeerLeft     = "peer_left"
	MsgPeersList    = "peers_list"
	MsgError        = "error"
)

type SignalMessage struct {
	Type    string          `json:"type"`
	PeerID  domain.PeerID   `json:"peer_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	Token    string              `json:"token"`
	AppID    string              `json:"app_id,omitempty"`
	Metadata domain.PeerMetadata `json:"metadata"`
}

type RoomJoinedPayload struct {
	PeerID domain.PeerID       `json:"peer_id"`
	Room   string              `json:"room"`
	Peers  []domain.RemotePeer `json:"peers"`
}

type SDPPayload struct {
	SDP string `json:"sdp"`
}

type ICECandidatePayload struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type PeerPayload struct {
	Peer domain.RemotePeer `json:"peer"`
}

type PeerLeftPayload struct {
	PeerID domain.PeerID `json:"peer_id"`
}

type PeersListPayload struct {
	Peers []domain.RemotePeer `json:"peers"`
}

type TrackUpdatePayload struct {
	PeerID domain.PeerID `json:"peer_id,omitempty"`
	Track  domain.Track  `json:"track"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(msgType string, payload interface{}) (SignalMessage, error) {
	msg := SignalMessage{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Payload = data
	return msg, nil
}

func decode(msg SignalMessage, v interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", msg.Type, err)
	}
	return nil
}
