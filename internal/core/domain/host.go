package domain

import (
	"encoding/json"
	"sort"
)

type remoteMetadata struct {
	Peer *struct {
		DisplayName string `json:"displayName"`
		IsHost      *bool  `json:"isHost"`
	} `json:"peer"`
}

// IsHost reports whether the peer's metadata marks it as the broadcaster.
// Malformed or missing metadata is treated as "not host".
func (p RemotePeer) IsHost() bool {
	if len(p.Metadata) == 0 {
		return false
	}
	var md remoteMetadata
	if err := json.Unmarshal(p.Metadata, &md); err != nil {
		return false
	}
	return md.Peer != nil && md.Peer.IsHost != nil && *md.Peer.IsHost
}

// DisplayName extracts the display name from the peer's metadata, if any.
func (p RemotePeer) DisplayName() string {
	var md remoteMetadata
	if err := json.Unmarshal(p.Metadata, &md); err != nil || md.Peer == nil {
		return ""
	}
	return md.Peer.DisplayName
}

// ActiveVideoTrack returns the first active video track of the peer.
func (p RemotePeer) ActiveVideoTrack() (Track, bool) {
	for _, t := range p.Tracks {
		if t.Kind == TrackKindVideo && t.IsActive {
			return t, true
		}
	}
	return Track{}, false
}

// FindHost returns the host peer. When several peers claim host the one
// with the lowest id wins, so the choice does not depend on list order.
func FindHost(peers []RemotePeer) (RemotePeer, bool) {
	var hosts []RemotePeer
	for _, p := range peers {
		if p.IsHost() {
			hosts = append(hosts, p)
		}
	}
	if len(hosts) == 0 {
		return RemotePeer{}, false
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
	return hosts[0], true
}

// ResolveHostVideo finds the host peer and its active video track. A missing
// host or track is a normal "waiting for streamer" condition, not an error.
func ResolveHostVideo(peers []RemotePeer) (PeerID, TrackID, bool) {
	host, ok := FindHost(peers)
	if !ok {
		return "", "", false
	}
	track, ok := host.ActiveVideoTrack()
	if !ok {
		return host.ID, "", false
	}
	return host.ID, track.ID, true
}
