package live

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const (
	rtpMTU         = 1200
	videoClockRate = 90000
	audioClockRate = 48000
	audioFrame     = 20 * time.Millisecond
)

// syntheticSource packetizes generated frames onto a local RTP track while
// enabled. It stands in for a capture device.
type syntheticSource struct {
	track      *webrtc.TrackLocalStaticRTP
	packetizer rtp.Packetizer
	interval   time.Duration
	samples    uint32
	frame      func(seq uint64, keyframe bool) []byte
	logger     *zap.SugaredLogger

	enabled  atomic.Bool
	keyframe atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func newVideoSource(trackID, streamID string, interval time.Duration, logger *zap.SugaredLogger) (*syntheticSource, error) {
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: videoClockRate},
		trackID,
		streamID,
	)
	if err != nil {
		return nil, err
	}

	return &syntheticSource{
		track: track,
		packetizer: rtp.NewPacketizer(rtpMTU, 96, rand.Uint32(),
			&codecs.VP8Payloader{EnablePictureID: true},
			rtp.NewRandomSequencer(), videoClockRate),
		interval: interval,
		samples:  uint32(interval.Seconds() * videoClockRate),
		frame:    vp8Frame,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

func newAudioSource(trackID, streamID string, logger *zap.SugaredLogger) (*syntheticSource, error) {
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: audioClockRate, Channels: 2},
		trackID,
		streamID,
	)
	if err != nil {
		return nil, err
	}

	return &syntheticSource{
		track: track,
		packetizer: rtp.NewPacketizer(rtpMTU, 111, rand.Uint32(),
			&codecs.OpusPayloader{}, rtp.NewRandomSequencer(), audioClockRate),
		interval: audioFrame,
		samples:  uint32(audioFrame.Seconds() * audioClockRate),
		frame:    opusSilence,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

func (s *syntheticSource) start() {
	s.wg.Add(1)
	go s.run()
}

func (s *syntheticSource) setEnabled(on bool) {
	if on && !s.enabled.Load() {
		s.keyframe.Store(true)
	}
	s.enabled.Store(on)
}

// requestKeyframe makes the next video frame a keyframe.
func (s *syntheticSource) requestKeyframe() {
	s.keyframe.Store(true)
}

func (s *syntheticSource) close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *syntheticSource) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		if !s.enabled.Load() {
			continue
		}

		key := s.keyframe.Swap(false) || seq == 0
		for _, pkt := range s.packetizer.Packetize(s.frame(seq, key), s.samples) {
			if err := s.track.WriteRTP(pkt); err != nil {
				s.logger.Debugw("write rtp failed", "track_id", s.track.ID(), "error", err)
				break
			}
		}
		seq++
	}
}

// vp8Frame builds a frame with a valid VP8 payload header: keyframes carry
// the start code and a 320x240 size.
func vp8Frame(seq uint64, keyframe bool) []byte {
	body := make([]byte, 256)
	for i := range body {
		body[i] = byte(seq + uint64(i))
	}
	if !keyframe {
		return append([]byte{0x01, 0x00, 0x00}, body...)
	}
	header := []byte{
		0x10, 0x02, 0x00, // frame tag: keyframe, show_frame
		0x9d, 0x01, 0x2a, // start code
		0x40, 0x01, // width 320
		0xf0, 0x00, // height 240
	}
	return append(header, body...)
}

func opusSilence(uint64, bool) []byte {
	return []byte{0xf8, 0xff, 0xfe}
}
