package moonlightpay

import (
	"bytes"
	"errors"
	"testing"

	"moonlightpay/internal/fec"
)

func newS4Payloader(t *testing.T, fecPercentage, minRequiredFEC int) *VideoPayloader {
	t.Helper()
	p, err := NewVideoPayloader(VideoConfig{
		PayloadSize:           10 + videoShardHeaderSize,
		AddPadding:            true,
		FECPercentage:         fecPercentage,
		MinRequiredFECPackets: minRequiredFEC,
	})
	if err != nil {
		t.Fatalf("NewVideoPayloader: %v", err)
	}
	return p
}

func TestVideoPayloader_S4Split(t *testing.T) {
	p := newS4Payloader(t, 0, 0)

	shards, err := p.PushFrame([]byte("$A PAYLOAD"))
	if err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if len(shards) != 2 {
		t.Fatalf("got %d shards, want 2", len(shards))
	}

	want0 := []byte("\x01\x00\x00\x00\x01\x00\x00\x00$A")
	want1 := []byte(" PAYLOAD\x00\x00")
	if got := shards[0][videoShardHeaderSize:]; !bytes.Equal(got, want0) {
		t.Fatalf("shard 0 payload = % x, want % x", got, want0)
	}
	if got := shards[1][videoShardHeaderSize:]; !bytes.Equal(got, want1) {
		t.Fatalf("shard 1 payload = % x, want % x", got, want1)
	}

	flags0 := shards[0][rtpHeaderSize+offFlags]
	flags1 := shards[1][rtpHeaderSize+offFlags]
	if flags0 != flagContainsPicData|flagSOF {
		t.Fatalf("shard 0 flags = %#x, want CONTAINS_PIC_DATA|SOF", flags0)
	}
	if flags1 != flagContainsPicData|flagEOF {
		t.Fatalf("shard 1 flags = %#x, want CONTAINS_PIC_DATA|EOF", flags1)
	}

	spi0 := getUint32LE(shards[0][rtpHeaderSize+offStreamPacketIndex : rtpHeaderSize+offStreamPacketIndex+4])
	spi1 := getUint32LE(shards[1][rtpHeaderSize+offStreamPacketIndex : rtpHeaderSize+offStreamPacketIndex+4])
	if spi0 != 0 || spi1 != 0x100 {
		t.Fatalf("streamPacketIndex = %d, %d, want 0, 0x100", spi0, spi1)
	}
}

func TestVideoPayloader_S5FEC(t *testing.T) {
	p := newS4Payloader(t, 50, 2)

	shards, err := p.PushFrame([]byte("$A PAYLOAD"))
	if err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if len(shards) != 4 {
		t.Fatalf("got %d shards, want 4 (2 data + 2 parity)", len(shards))
	}

	want := []uint32{8390208, 8394304, 8398400, 8402496}
	for i, shard := range shards {
		header := shard[rtpHeaderSize : rtpHeaderSize+videoHeaderSize]
		got := getUint32LE(header[offFECInfo:])
		if got != want[i] {
			t.Fatalf("shard %d fecInfo = %d, want %d", i, got, want[i])
		}
	}
}

var errCodecUnavailable = errors.New("fec codec unavailable")

func TestVideoPayloader_FrameIndexAdvancesOnError(t *testing.T) {
	p := newS4Payloader(t, 50, 1)
	p.newCodec = func(dataShards, parityShards int) (*fec.Codec, error) {
		return nil, errCodecUnavailable
	}

	before := p.frameIndex
	if _, err := p.PushFrame([]byte("$A PAYLOAD")); err == nil {
		t.Fatalf("expected error from failing fec codec factory")
	}
	if p.frameIndex != before+1 {
		t.Fatalf("frameIndex = %d, want %d (must advance even on error)", p.frameIndex, before+1)
	}
}
