/*
@Description: Video payloader: frame fragmentation, Moonlight headers, FEC
@Language: Go 1.23.4
*/

package moonlightpay

import (
	"moonlightpay/internal/fec"

	"github.com/pkg/errors"
)

const (
	// rtpHeaderMark is the fixed first byte of every RTP packet emitted by this
	// module: version 2, no padding/extension/CSRC.
	rtpHeaderMark = 0x80

	// audioPacketType is the RTP payload type carried by every audio shard.
	audioPacketType = 97

	// videoPacketType is the RTP payload type carried by every video shard.
	// Moonlight's video channel uses a distinct payload type from audio's
	// 97; receivers in practice distinguish the two streams by UDP port, so
	// the concrete value below is not otherwise load-bearing for this core.
	videoPacketType = 100

	rtpHeaderSize = 12

	// videoHeaderSize is the size of the Moonlight per-shard header that
	// follows the RTP header on every video shard: streamPacketIndex(4) +
	// frameIndex(4) + flags(1) + reserved(1) + multiFecFlags(1) +
	// multiFecBlocks(1) + fecInfo(4) + reserved2(2).
	videoHeaderSize = 18

	// videoShardHeaderSize is "RTP_HEADER_SIZE" from spec.md §4.4: the
	// combined RTP + Moonlight video header region every shard is prefixed
	// with, ahead of the fragment payload.
	videoShardHeaderSize = rtpHeaderSize + videoHeaderSize

	multiFecFlagsValue = 0x10

	flagContainsPicData = 0x1
	flagSOF             = 0x2
	flagEOF             = 0x4

	// defaultMaxBlockDataShards bounds a single FEC block's data shard
	// count before the video payloader splits a frame's shards across
	// successive blocks. The Reed-Solomon codec caps data+parity at 255
	// shards; this default keeps blocks well under that ceiling while
	// still batching enough shards per block to amortize FEC overhead.
	defaultMaxBlockDataShards = 6

	// offsets into the Moonlight video header region (after the 12-byte
	// RTP header)
	offStreamPacketIndex = 0
	offFrameIndex        = 4
	offFlags             = 8
	offMultiFecFlags     = 10
	offMultiFecBlocks    = 11
	offFECInfo           = 12
)

// videoPayloadMarker is the literal 8-byte marker Moonlight prepends to
// every video frame ahead of the codec bitstream. It is opaque payload:
// it counts toward fragmentation exactly like any other payload byte.
var videoPayloadMarker = [8]byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}

// VideoConfig is the immutable, per-stream configuration for a
// VideoPayloader.
type VideoConfig struct {
	// PayloadSize is the target size, in bytes, of each full shard: the
	// RTP header, the Moonlight per-shard header and the fragment payload
	// together, upper bounded by the downstream path's MTU.
	PayloadSize int

	// FECPercentage is the fraction, 0-100, of data shards to generate as
	// parity shards per FEC block.
	FECPercentage int

	// MinRequiredFECPackets is the floor applied to the computed parity
	// shard count for the first FEC block of every frame.
	MinRequiredFECPackets int

	// AddPadding zero-extends the last data shard of a frame to the full
	// shard payload capacity. When false, the last shard may be shorter
	// than the others.
	AddPadding bool

	// MaxBlockDataShards overrides defaultMaxBlockDataShards. Zero selects
	// the default.
	MaxBlockDataShards int
}

func (c VideoConfig) validate() error {
	if c.PayloadSize <= videoShardHeaderSize {
		return &ConfigurationInvalidError{Reason: errors.Errorf(
			"payload_size must exceed the shard header size (%d), got %d",
			videoShardHeaderSize, c.PayloadSize).Error()}
	}
	if c.FECPercentage < 0 || c.FECPercentage > 100 {
		return &ConfigurationInvalidError{Reason: "fec_percentage must be within [0,100]"}
	}
	if c.MinRequiredFECPackets < 0 {
		return &ConfigurationInvalidError{Reason: "min_required_fec_packets must be non-negative"}
	}
	return nil
}

// VideoOption customizes a VideoPayloader at construction time.
type VideoOption func(*VideoPayloader)

// WithVideoStats overrides the Stats instance a payloader reports to,
// instead of the package-level DefaultStats.
func WithVideoStats(s *Stats) VideoOption {
	return func(p *VideoPayloader) { p.stats = s }
}

// WithVideoFECCodecFactory overrides how the payloader constructs its
// Reed-Solomon codec per block. Tests use this to inject a codec
// constructor that fails, to exercise PushFrame's error path.
func WithVideoFECCodecFactory(f func(dataShards, parityShards int) (*fec.Codec, error)) VideoOption {
	return func(p *VideoPayloader) { p.newCodec = f }
}

// VideoPayloader fragments encoded video frames into Moonlight RTP shards
// and attaches Reed-Solomon FEC parity. One instance is single-threaded and
// owns its counters exclusively; see the package doc for the concurrency
// model.
type VideoPayloader struct {
	cfg   VideoConfig
	stats *Stats

	newCodec func(dataShards, parityShards int) (*fec.Codec, error)

	frameIndex        uint32
	streamPacketIndex uint32
	rtpSequenceNumber uint16
}

// NewVideoPayloader validates cfg and returns a ready-to-use payloader.
func NewVideoPayloader(cfg VideoConfig, opts ...VideoOption) (*VideoPayloader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxBlockDataShards <= 0 {
		cfg.MaxBlockDataShards = defaultMaxBlockDataShards
	}

	p := &VideoPayloader{
		cfg:      cfg,
		stats:    DefaultStats,
		newCodec: fec.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PushFrame fragments one encoded video frame (H.264/H.265 NAL units) into
// an ordered list of datagram-sized shards: the frame's data shards
// followed by its FEC parity shards. frame_index always advances, even on
// error, so downstream frame indexing stays strictly monotonic.
func (p *VideoPayloader) PushFrame(frame []byte) ([][]byte, error) {
	framed := make([]byte, len(videoPayloadMarker)+len(frame))
	copy(framed, videoPayloadMarker[:])
	copy(framed[len(videoPayloadMarker):], frame)

	shardCapacity := p.cfg.PayloadSize - videoShardHeaderSize
	dataShards := p.splitIntoShards(framed, shardCapacity)

	shards, err := p.attachFEC(dataShards, shardCapacity)
	p.frameIndex++
	if err != nil {
		p.stats.addVideoFrameDropped()
		return nil, err
	}

	var dataBytes, fecBytes int
	for i, s := range shards {
		if i < len(dataShards) {
			dataBytes += len(s)
		} else {
			fecBytes += len(s)
		}
	}
	p.stats.addVideoShards(len(dataShards), dataBytes)
	if n := len(shards) - len(dataShards); n > 0 {
		p.stats.addVideoFECShards(n, fecBytes)
	}
	return shards, nil
}

// splitIntoShards carves the framed payload into RTP+Moonlight-framed
// shards of shardCapacity payload bytes each, per spec.md §4.4.
func (p *VideoPayloader) splitIntoShards(framed []byte, shardCapacity int) [][]byte {
	n := (len(framed) + shardCapacity - 1) / shardCapacity
	if n == 0 {
		n = 1
	}

	shards := make([][]byte, n)
	for i := 0; i < n; i++ {
		start := i * shardCapacity
		end := start + shardCapacity
		if end > len(framed) {
			end = len(framed)
		}
		chunk := framed[start:end]

		payloadLen := shardCapacity
		if len(chunk) < shardCapacity && !p.cfg.AddPadding {
			payloadLen = len(chunk)
		}

		shard := allocShard(videoShardHeaderSize + payloadLen)
		// RTP sequence number is assigned once, by attachFECBlock, after the
		// final data+parity shard count for the block is known.
		writeRTPHeader(shard, videoPacketType, 0, 0)
		copy(shard[videoShardHeaderSize:], chunk)

		flags := byte(flagContainsPicData)
		if i == 0 {
			flags |= flagSOF
		}
		if i == n-1 {
			flags |= flagEOF
		}

		header := shard[rtpHeaderSize:videoShardHeaderSize]
		putUint32LE(header[offStreamPacketIndex:], p.streamPacketIndex)
		putUint32LE(header[offFrameIndex:], p.frameIndex)
		header[offFlags] = flags
		header[offMultiFecFlags] = multiFecFlagsValue

		shards[i] = shard
		p.streamPacketIndex += 0x100
	}
	return shards
}

// attachFEC runs the single- or multi-block FEC procedure from spec.md
// §4.5 over the data shards produced by splitIntoShards.
func (p *VideoPayloader) attachFEC(dataShards [][]byte, shardCapacity int) ([][]byte, error) {
	if len(dataShards) <= p.cfg.MaxBlockDataShards {
		return p.attachFECBlock(dataShards, shardCapacity, 0, 0)
	}

	blocks := splitIntoBlocks(dataShards, p.cfg.MaxBlockDataShards)
	lastBlockIndex := len(blocks) - 1

	var all [][]byte
	for i, block := range blocks {
		shards, err := p.attachFECBlock(block, shardCapacity, i, lastBlockIndex)
		if err != nil {
			return nil, err
		}
		all = append(all, shards...)
	}
	return all, nil
}

// splitIntoBlocks partitions dataShards into contiguous groups of at most
// blockSize shards each.
func splitIntoBlocks(dataShards [][]byte, blockSize int) [][][]byte {
	var blocks [][][]byte
	for start := 0; start < len(dataShards); start += blockSize {
		end := start + blockSize
		if end > len(dataShards) {
			end = len(dataShards)
		}
		blocks = append(blocks, dataShards[start:end])
	}
	return blocks
}

// computeBlockParity applies the FEC percentage / minimum-packet policy
// from spec.md §4.5. The minimum-packet floor is only applied to the first
// block of a multi-block frame: later blocks (and the last block in
// particular) use the raw percentage-derived count, which reproduces the
// reference implementation's one-fewer-total-shard behavior documented as
// an open question in spec.md §9 and resolved in SPEC_FULL.md §9.
func (p *VideoPayloader) computeBlockParity(dataShards, blockIndex int) int {
	parity := (dataShards*p.cfg.FECPercentage + 99) / 100
	if blockIndex == 0 && parity < p.cfg.MinRequiredFECPackets {
		parity = p.cfg.MinRequiredFECPackets
	}
	if dataShards+parity > 255 {
		parity = 255 - dataShards
	}
	if parity < 0 {
		parity = 0
	}
	return parity
}

// attachFECBlock runs Reed-Solomon encode over one block of data shards,
// allocates and fills its parity shards, and rewrites the post-hoc fields
// (RTP sequence number, multiFecBlocks, fecInfo) on every shard in the
// block. Per spec.md §4.5, parity shards' frameIndex/streamPacketIndex
// bytes are left exactly as the codec wrote them: opaque.
func (p *VideoPayloader) attachFECBlock(dataShards [][]byte, shardCapacity, blockIndex, lastBlockIndex int) ([][]byte, error) {
	d := len(dataShards)
	parity := p.computeBlockParity(d, blockIndex)

	shardSize := videoShardHeaderSize + shardCapacity
	all := make([][]byte, d+parity)
	copy(all, dataShards)
	for j := 0; j < parity; j++ {
		all[d+j] = allocShard(shardSize)
	}

	if parity > 0 {
		codec, err := p.newCodec(d, parity)
		if err != nil {
			return nil, errors.Wrap(err, "video: constructing fec codec")
		}
		encodeShards := padToEqualLength(all, shardSize)
		if err := codec.Encode(encodeShards); err != nil {
			return nil, errors.Wrap(err, "video: fec encode")
		}
	}

	multiFecBlocks := byte(blockIndex<<4 | lastBlockIndex)
	for j, shard := range all {
		putUint16BE(shard[2:4], p.rtpSequenceNumber)
		p.rtpSequenceNumber++

		header := shard[rtpHeaderSize:videoShardHeaderSize]
		header[offMultiFecBlocks] = multiFecBlocks
		putUint32LE(header[offFECInfo:], fecInfoValue(j, parity, p.cfg.FECPercentage))
	}
	return all, nil
}

// padToEqualLength returns shards unchanged if every element is already
// shardSize bytes (the common case: splitIntoShards and attachFECBlock
// both allocate exact-size buffers), or a set of zero-padded copies
// otherwise. The Reed-Solomon codec requires uniform shard length.
func padToEqualLength(shards [][]byte, shardSize int) [][]byte {
	for _, s := range shards {
		if len(s) != shardSize {
			out := make([][]byte, len(shards))
			for i, s := range shards {
				if len(s) == shardSize {
					out[i] = s
					continue
				}
				padded := allocShard(shardSize)
				copy(padded, s)
				out[i] = padded
			}
			return out
		}
	}
	return shards
}

// fecInfoValue packs shardIndex, the block's parity shard count, and the
// configured FEC percentage into the little-endian bit layout the
// reference payloader emits, empirically verified against the canonical
// fixtures in spec.md §8 (S5). See DESIGN.md for the derivation.
func fecInfoValue(shardIndex, parityCount, fecPercentage int) uint32 {
	return uint32(fecPercentage)<<5 | uint32(parityCount)<<22 | uint32(shardIndex)<<12
}

// writeRTPHeader fills the common 12-byte RTP header shared by video and
// audio shards.
func writeRTPHeader(shard []byte, packetType byte, seq uint16, timestamp uint32) {
	shard[0] = rtpHeaderMark
	shard[1] = packetType
	putUint16BE(shard[2:4], seq)
	putUint32BE(shard[4:8], timestamp)
	putUint32BE(shard[8:12], 0)
}
