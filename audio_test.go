package moonlightpay

import (
	"bytes"
	"errors"
	"testing"

	"moonlightpay/crypto"
)

func newS2Payloader(t *testing.T) *AudioPayloader {
	t.Helper()
	p, err := NewAudioPayloader(AudioConfig{
		Encrypt: true,
		Key:     []byte("0123456789012345"),
		IVSeed:  numericSeed(12345678),
	})
	if err != nil {
		t.Fatalf("NewAudioPayloader: %v", err)
	}
	return p
}

func TestAudioPayloader_S2Roundtrip(t *testing.T) {
	p := newS2Payloader(t)

	payload := []byte("TUNZ TUNZ TUMP TUMP!")
	shards, err := p.PushPacket(payload)
	if err != nil {
		t.Fatalf("PushPacket: %v", err)
	}
	if len(shards) != 1 {
		t.Fatalf("got %d shards, want 1", len(shards))
	}
	if p.rtpSequenceNumber != 1 {
		t.Fatalf("rtp_sequence_number = %d, want 1", p.rtpSequenceNumber)
	}

	shard := shards[0]
	ciphertext := shard[rtpHeaderSize:]

	iv := DeriveIV(numericSeed(12345678), 0)
	c, err := crypto.NewAESCBC([]byte("0123456789012345"))
	if err != nil {
		t.Fatalf("NewAESCBC: %v", err)
	}
	got, err := c.Decrypt(ciphertext, iv[:])
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decrypted payload = %q, want %q", got, payload)
	}

	second, err := p.PushPacket(payload)
	if err != nil {
		t.Fatalf("PushPacket (second): %v", err)
	}
	shard2 := second[0]
	if seq := getUint16BE(shard2[2:4]); seq != 1 {
		t.Fatalf("wire sequenceNumber = %d, want 1", seq)
	}
	if ts := getUint32BE(shard2[4:8]); ts != audioTimestampStep {
		t.Fatalf("wire timestamp = %d, want %d", ts, audioTimestampStep)
	}
}

func TestAudioPayloader_S3FECBoundary(t *testing.T) {
	p := newS2Payloader(t)
	payload := []byte("TUNZ TUNZ TUMP TUMP!")

	wantCounts := []int{1, 1, 1, 3}
	for i, want := range wantCounts {
		shards, err := p.PushPacket(payload)
		if err != nil {
			t.Fatalf("PushPacket #%d: %v", i+1, err)
		}
		if len(shards) != want {
			t.Fatalf("PushPacket #%d returned %d shards, want %d", i+1, len(shards), want)
		}
	}
}

func TestAudioPayloader_UnencryptedCarriesPlaintext(t *testing.T) {
	p, err := NewAudioPayloader(AudioConfig{
		Encrypt: false,
		IVSeed:  numericSeed(12345678),
	})
	if err != nil {
		t.Fatalf("NewAudioPayloader: %v", err)
	}

	payload := []byte("TUNZ TUNZ TUMP TUMP!")
	shards, err := p.PushPacket(payload)
	if err != nil {
		t.Fatalf("PushPacket: %v", err)
	}

	got := shards[0][rtpHeaderSize:]
	if !bytes.Equal(got, payload) {
		t.Fatalf("unencrypted shard payload = %q, want %q", got, payload)
	}
}

func TestAudioPayloader_OversizedPayloadDropped(t *testing.T) {
	p, err := NewAudioPayloader(AudioConfig{
		Encrypt:     true,
		Key:         []byte("0123456789012345"),
		IVSeed:      numericSeed(12345678),
		PayloadSize: rtpHeaderSize + 8,
	})
	if err != nil {
		t.Fatalf("NewAudioPayloader: %v", err)
	}

	_, err = p.PushPacket([]byte("this packet is far too long to fit"))
	if err == nil {
		t.Fatalf("expected an oversized payload error")
	}
	var oversized *OversizedPayloadError
	if !errors.As(err, &oversized) {
		t.Fatalf("PushPacket error = %v, want *OversizedPayloadError", err)
	}
}
