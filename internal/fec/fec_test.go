package fec

import (
	"bytes"
	"testing"
)

func fixedShards(n, size int, fill byte) [][]byte {
	shards := make([][]byte, n)
	for i := range shards {
		shards[i] = bytes.Repeat([]byte{fill + byte(i)}, size)
	}
	return shards
}

func TestCodec_EncodeThenReconstructIsByteExact(t *testing.T) {
	const dataShards, parityShards, shardSize = 4, 2, 64

	codec, err := New(dataShards, parityShards)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	shards := fixedShards(dataShards, shardSize, 1)
	all := make([][]byte, dataShards+parityShards)
	copy(all, shards)
	for j := dataShards; j < dataShards+parityShards; j++ {
		all[j] = make([]byte, shardSize)
	}
	if err := codec.Encode(all); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	original := make([][]byte, len(all))
	for i, s := range all {
		original[i] = append([]byte(nil), s...)
	}

	// Erase two shards: one data, one parity -- exactly at the repair
	// ceiling for a (4,2) Reed-Solomon block.
	present := []bool{true, false, true, true, false, true}
	lost := make([][]byte, len(all))
	for i, s := range all {
		lost[i] = append([]byte(nil), s...)
		if !present[i] {
			for b := range lost[i] {
				lost[i][b] = 0
			}
		}
	}

	if err := codec.Reconstruct(lost, present); err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	for i := range original {
		if !bytes.Equal(original[i], lost[i]) {
			t.Fatalf("shard %d not byte-exact after reconstruct: got % x, want % x", i, lost[i], original[i])
		}
	}
}

func TestCodec_ReconstructUnrecoverable(t *testing.T) {
	codec, err := New(4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	shards := fixedShards(6, 32, 1)
	if err := codec.Encode(shards); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Three shards missing from a (4,2) block exceeds the repair budget.
	present := []bool{true, false, false, false, true, true}
	if err := codec.Reconstruct(shards, present); err == nil {
		t.Fatalf("Reconstruct: expected error for unrecoverable loss")
	}
}

func TestCodec_ZeroParityIsNoOp(t *testing.T) {
	codec, err := New(3, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	shards := fixedShards(3, 16, 5)
	if err := codec.Encode(shards); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	present := []bool{true, true, true}
	if err := codec.Reconstruct(shards, present); err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	present[1] = false
	if err := codec.Reconstruct(shards, present); err == nil {
		t.Fatalf("Reconstruct: expected ErrUnrecoverableLoss with zero parity shards")
	}
}
