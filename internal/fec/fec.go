/*
@Description: Reed-Solomon adapter shared by the video and audio payloaders
@Language: Go 1.23.4
*/

package fec

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// ErrUnrecoverableLoss is returned by Reconstruct when more shards are
// marked missing than the block's parity count can repair.
var ErrUnrecoverableLoss = errors.New("fec: unrecoverable shard loss")

// Codec wraps a reedsolomon.Encoder configured for one specific
// data/parity shard split. A Codec is safe for concurrent use: the
// underlying encoder holds no mutable state across calls.
type Codec struct {
	dataShards   int
	parityShards int
	enc          reedsolomon.Encoder
}

// New builds a Codec for the given data/parity shard counts. parityShards
// may be zero, in which case Encode and Reconstruct are no-ops; this lets
// callers uniformly construct a Codec even for FEC-disabled blocks.
func New(dataShards, parityShards int) (*Codec, error) {
	if dataShards <= 0 {
		return nil, errors.New("fec: dataShards must be positive")
	}
	if parityShards == 0 {
		return &Codec{dataShards: dataShards, parityShards: 0}, nil
	}

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, errors.Wrap(err, "fec: constructing encoder")
	}
	return &Codec{dataShards: dataShards, parityShards: parityShards, enc: enc}, nil
}

// Encode fills the parity region of shards (indices [dataShards:]) from
// the data region. Every shard must already be the same length.
func (c *Codec) Encode(shards [][]byte) error {
	if c.parityShards == 0 {
		return nil
	}
	if len(shards) != c.dataShards+c.parityShards {
		return errors.Errorf("fec: expected %d shards, got %d", c.dataShards+c.parityShards, len(shards))
	}
	if err := c.enc.Encode(shards); err != nil {
		return errors.Wrap(err, "fec: encode")
	}
	return nil
}

// Reconstruct repairs missing shards in place. present[i] must be false
// for every shard not received off the wire; those slices are overwritten
// with their recovered contents. Reconstruct returns ErrUnrecoverableLoss
// when too many shards are missing to recover.
func (c *Codec) Reconstruct(shards [][]byte, present []bool) error {
	if c.parityShards == 0 {
		for _, ok := range present {
			if !ok {
				return ErrUnrecoverableLoss
			}
		}
		return nil
	}

	working := make([][]byte, len(shards))
	for i, s := range shards {
		if present[i] {
			working[i] = s
		}
	}

	if err := c.enc.Reconstruct(working); err != nil {
		return ErrUnrecoverableLoss
	}
	for i := range shards {
		if !present[i] {
			copy(shards[i], working[i])
		}
	}
	return nil
}

// Verify checks that the parity shards are consistent with the data
// shards, returning false on any mismatch.
func (c *Codec) Verify(shards [][]byte) (bool, error) {
	if c.parityShards == 0 {
		return true, nil
	}
	ok, err := c.enc.Verify(shards)
	if err != nil {
		return false, errors.Wrap(err, "fec: verify")
	}
	return ok, nil
}

// DataShards returns the configured data shard count.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards returns the configured parity shard count.
func (c *Codec) ParityShards() int { return c.parityShards }
