/*
@Description: Audio payloader: fixed-size FEC blocks, AES-CBC encryption
@Language: Go 1.23.4
*/

package moonlightpay

import (
	"moonlightpay/crypto"
	"moonlightpay/internal/fec"

	"github.com/pkg/errors"
)

const (
	// AudioDataShards and AudioParityShards are fixed by the Moonlight
	// audio wire protocol: every audio FEC block is 4 data packets plus 2
	// parity packets, regardless of configuration.
	AudioDataShards   = 4
	AudioParityShards = 2
	audioTotalShards  = AudioDataShards + AudioParityShards

	// audioTimestampStep is the RTP timestamp increment the reference
	// payloader applies between consecutive audio packets.
	audioTimestampStep = 5
)

// AudioConfig is the immutable, per-stream configuration for an
// AudioPayloader.
type AudioConfig struct {
	// PacketDuration is the nominal number of milliseconds of audio
	// carried by one pushed packet (e.g. 5 for Opus at the usual
	// Moonlight framing). It is not consulted by PushPacket directly —
	// rtp_timestamp advances by the fixed per-shard step documented on
	// audioTimestampStep regardless — but it is part of the stream
	// configuration contract and is validated below.
	PacketDuration int

	// Encrypt selects whether payload bytes are AES-CBC encrypted before
	// framing. When false, the plaintext packet is carried as-is.
	Encrypt bool

	// Key is the 16-byte AES-128 key used to encrypt every audio packet's
	// payload when Encrypt is true.
	Key []byte

	// IVSeed is the 8-byte per-stream seed combined with each packet's RTP
	// sequence number to derive that packet's IV, via DeriveIV.
	IVSeed [8]byte

	// PayloadSize bounds the whole shard: the RTP header plus the payload
	// region (the ciphertext, or plaintext when Encrypt is false), so the
	// payload may be at most PayloadSize minus the RTP header size. Zero
	// leaves the payload unbounded. Set this to the downstream path's
	// configured shard size to enforce the §4.2/§7 oversized-payload
	// guard.
	PayloadSize int
}

func (c AudioConfig) validate() error {
	if c.PacketDuration < 0 {
		return &ConfigurationInvalidError{Reason: "packet_duration must be non-negative"}
	}
	if c.Encrypt && len(c.Key) != crypto.KeySize {
		return &ConfigurationInvalidError{Reason: errors.Errorf(
			"key must be %d bytes, got %d", crypto.KeySize, len(c.Key)).Error()}
	}
	return nil
}

// AudioOption customizes an AudioPayloader at construction time.
type AudioOption func(*AudioPayloader)

// WithAudioStats overrides the Stats instance a payloader reports to.
func WithAudioStats(s *Stats) AudioOption {
	return func(p *AudioPayloader) { p.stats = s }
}

// WithAudioCipherFactory overrides how the payloader constructs its block
// cipher, for example to inject a cipher whose Encrypt fails.
func WithAudioCipherFactory(f func(key []byte) (crypto.BlockCrypt, error)) AudioOption {
	return func(p *AudioPayloader) { p.newCipher = f }
}

// AudioPayloader encrypts and FEC-protects Opus audio packets in
// fixed-size blocks of AudioDataShards packets. One instance is
// single-threaded; see the package doc for the concurrency model.
type AudioPayloader struct {
	cfg   AudioConfig
	stats *Stats

	newCipher func(key []byte) (crypto.BlockCrypt, error)
	cipher    crypto.BlockCrypt
	codec     *fec.Codec

	rtpSequenceNumber uint16
	timestamp         uint32

	block [][]byte // accumulated data shards for the in-progress FEC block
}

// NewAudioPayloader validates cfg and returns a ready-to-use payloader.
func NewAudioPayloader(cfg AudioConfig, opts ...AudioOption) (*AudioPayloader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &AudioPayloader{
		cfg:   cfg,
		stats: DefaultStats,
		newCipher: func(key []byte) (crypto.BlockCrypt, error) {
			return crypto.NewAESCBC(key)
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.Encrypt {
		c, err := p.newCipher(cfg.Key)
		if err != nil {
			return nil, errors.Wrap(err, "audio: constructing cipher")
		}
		p.cipher = c
	}

	codec, err := fec.New(AudioDataShards, AudioParityShards)
	if err != nil {
		return nil, errors.Wrap(err, "audio: constructing fec codec")
	}
	p.codec = codec

	return p, nil
}

// PushPacket encrypts (when cfg.Encrypt is set) one Opus packet and
// appends it to the in-progress FEC block. The returned slice always
// contains this call's own shard first; every fourth call additionally
// closes the block and appends its AudioParityShards parity shards, so
// the caller never needs to track block boundaries itself.
func (p *AudioPayloader) PushPacket(packet []byte) ([][]byte, error) {
	payload := packet
	if p.cfg.Encrypt {
		iv := DeriveIV(p.cfg.IVSeed, uint32(p.rtpSequenceNumber))
		ciphertext, err := p.cipher.Encrypt(packet, iv[:])
		if err != nil {
			p.stats.addCryptoFailure()
			p.rtpSequenceNumber++
			return nil, &CryptoFailureError{Cause: err}
		}
		payload = ciphertext
	}

	if p.cfg.PayloadSize > 0 && len(payload) > p.cfg.PayloadSize-rtpHeaderSize {
		p.stats.addOversizedPayload()
		p.stats.addAudioPacketDropped()
		p.rtpSequenceNumber++
		return nil, &OversizedPayloadError{Size: len(payload), Limit: p.cfg.PayloadSize - rtpHeaderSize}
	}

	shard := allocShard(rtpHeaderSize + len(payload))
	writeRTPHeader(shard, audioPacketType, p.rtpSequenceNumber, p.timestamp)
	copy(shard[rtpHeaderSize:], payload)

	p.rtpSequenceNumber++
	p.timestamp += audioTimestampStep

	p.stats.addAudioShard(len(shard))
	p.block = append(p.block, shard)

	out := [][]byte{shard}
	if len(p.block) < AudioDataShards {
		return out, nil
	}

	parity, err := p.closeBlock()
	if err != nil {
		return nil, err
	}
	return append(out, parity...), nil
}

// closeBlock runs Reed-Solomon encode over the accumulated AudioDataShards
// data shards, returning the resulting parity shards, and resets the
// in-progress block.
func (p *AudioPayloader) closeBlock() ([][]byte, error) {
	dataShards := p.block
	p.block = nil

	shardSize := 0
	for _, s := range dataShards {
		if len(s) > shardSize {
			shardSize = len(s)
		}
	}
	padded := padToEqualLength(dataShards, shardSize)

	all := make([][]byte, audioTotalShards)
	copy(all, padded)
	for j := AudioDataShards; j < audioTotalShards; j++ {
		all[j] = allocShard(shardSize)
	}

	if err := p.codec.Encode(all); err != nil {
		return nil, errors.Wrap(err, "audio: fec encode")
	}

	parity := all[AudioDataShards:]
	var fecBytes int
	for _, s := range parity {
		fecBytes += len(s)
	}
	p.stats.addAudioFECShards(AudioParityShards, fecBytes)

	return parity, nil
}
