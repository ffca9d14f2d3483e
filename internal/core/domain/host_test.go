package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func peer(id string, isHost bool, tracks ...Track) RemotePeer {
	md, _ := json.Marshal(map[string]interface{}{
		"peer":   map[string]interface{}{"displayName": id, "isHost": isHost},
		"server": map[string]interface{}{},
	})
	return RemotePeer{ID: PeerID(id), Metadata: md, Tracks: tracks}
}

func TestResolveHostVideo_SingleHost(t *testing.T) {
	peers := []RemotePeer{
		peer("viewer-1", false, Track{ID: "v1", Kind: TrackKindVideo, IsActive: true}),
		peer("host", true,
			Track{ID: "a1", Kind: TrackKindAudio, IsActive: true},
			Track{ID: "cam", Kind: TrackKindVideo, IsActive: true},
		),
	}

	hostID, trackID, ok := ResolveHostVideo(peers)
	assert.True(t, ok)
	assert.Equal(t, PeerID("host"), hostID)
	assert.Equal(t, TrackID("cam"), trackID)
}

func TestResolveHostVideo_NoHost(t *testing.T) {
	peers := []RemotePeer{peer("viewer-1", false), peer("viewer-2", false)}

	_, trackID, ok := ResolveHostVideo(peers)
	assert.False(t, ok)
	assert.Empty(t, trackID)

	_, _, ok = ResolveHostVideo(nil)
	assert.False(t, ok)
}

func TestResolveHostVideo_InactiveTrack(t *testing.T) {
	peers := []RemotePeer{
		peer("host", true, Track{ID: "cam", Kind: TrackKindVideo, IsActive: false}),
	}

	hostID, trackID, ok := ResolveHostVideo(peers)
	assert.False(t, ok)
	assert.Equal(t, PeerID("host"), hostID)
	assert.Empty(t, trackID)
}

func TestFindHost_TieBreakLowestID(t *testing.T) {
	peers := []RemotePeer{
		peer("peer-b", true),
		peer("peer-c", false),
		peer("peer-a", true),
	}

	host, ok := FindHost(peers)
	assert.True(t, ok)
	assert.Equal(t, PeerID("peer-a"), host.ID)
}

func TestIsHost_MalformedMetadata(t *testing.T) {
	cases := []json.RawMessage{
		nil,
		json.RawMessage(`not json`),
		json.RawMessage(`{"peer":{"isHost":"true"}}`),
		json.RawMessage(`{"isHost":true}`),
		json.RawMessage(`{"peer":null}`),
	}
	for _, md := range cases {
		assert.False(t, RemotePeer{ID: "x", Metadata: md}.IsHost(), string(md))
	}
}

func TestPermissionState_WithStatuses(t *testing.T) {
	s := PermissionState{}.WithStatuses(PermissionGranted, PermissionDenied)
	assert.False(t, s.AllGranted)

	s = s.WithStatuses(PermissionGranted, PermissionGranted)
	assert.True(t, s.AllGranted)
}
