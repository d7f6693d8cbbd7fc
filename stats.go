/*
@Description: Packet-level statistics for the Moonlight payloaders
@Language: Go 1.23.4
*/

package moonlightpay

import "sync/atomic"

// Stats holds atomic counters tracking payloader activity. All fields are
// uint64 and must be accessed through the methods below (or atomic.Load*
// directly) since a Stats instance may be shared across payloader instances
// running on separate goroutines.
type Stats struct {
	// Shard-level counters
	VideoShardsEmitted    uint64
	VideoFECShardsEmitted uint64
	AudioShardsEmitted    uint64
	AudioFECShardsEmitted uint64
	BytesEmitted          uint64

	// Block-level counters
	VideoFramesDropped uint64
	AudioPacketsDropped uint64
	FECBlocksClosed     uint64

	// Failure counters
	CryptoFailures    uint64
	OversizedPayloads uint64
}

// DefaultStats is used by payloaders constructed without an explicit
// WithVideoStats or WithAudioStats option, mirroring the package-wide DefaultSnmp convention this
// module's teacher uses for its own counters.
var DefaultStats = &Stats{}

func (s *Stats) addVideoShards(n, bytes int) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.VideoShardsEmitted, uint64(n))
	atomic.AddUint64(&s.BytesEmitted, uint64(bytes))
}

func (s *Stats) addVideoFECShards(n, bytes int) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.VideoFECShardsEmitted, uint64(n))
	atomic.AddUint64(&s.BytesEmitted, uint64(bytes))
}

func (s *Stats) addAudioShard(bytes int) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.AudioShardsEmitted, 1)
	atomic.AddUint64(&s.BytesEmitted, uint64(bytes))
}

func (s *Stats) addAudioFECShards(n, bytes int) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.AudioFECShardsEmitted, uint64(n))
	atomic.AddUint64(&s.BytesEmitted, uint64(bytes))
	atomic.AddUint64(&s.FECBlocksClosed, 1)
}

func (s *Stats) addVideoFrameDropped() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.VideoFramesDropped, 1)
}

func (s *Stats) addAudioPacketDropped() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.AudioPacketsDropped, 1)
}

func (s *Stats) addCryptoFailure() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.CryptoFailures, 1)
}

func (s *Stats) addOversizedPayload() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.OversizedPayloads, 1)
}

// Snapshot returns a point-in-time copy of the counters, safe to read
// without racing the atomic writers above.
func (s *Stats) Snapshot() Stats {
	return Stats{
		VideoShardsEmitted:    atomic.LoadUint64(&s.VideoShardsEmitted),
		VideoFECShardsEmitted: atomic.LoadUint64(&s.VideoFECShardsEmitted),
		AudioShardsEmitted:    atomic.LoadUint64(&s.AudioShardsEmitted),
		AudioFECShardsEmitted: atomic.LoadUint64(&s.AudioFECShardsEmitted),
		BytesEmitted:          atomic.LoadUint64(&s.BytesEmitted),
		VideoFramesDropped:    atomic.LoadUint64(&s.VideoFramesDropped),
		AudioPacketsDropped:   atomic.LoadUint64(&s.AudioPacketsDropped),
		FECBlocksClosed:       atomic.LoadUint64(&s.FECBlocksClosed),
		CryptoFailures:        atomic.LoadUint64(&s.CryptoFailures),
		OversizedPayloads:     atomic.LoadUint64(&s.OversizedPayloads),
	}
}
