/*
@Description: Byte-level primitives shared by the video and audio payloaders
@Language: Go 1.23.4
*/

package moonlightpay

import (
	"encoding/binary"
	"sync"
)

// mtuLimit bounds the shard arena's pooled buffer size. Shards larger than
// this (which should not happen for a correctly configured stream) fall
// back to a plain allocation instead of being pooled.
const mtuLimit = 1500

// shardArena is a package-wide pool of mtuLimit-sized buffers, mirroring the
// teacher's xmitBuf pool: payloaders pull from it on every emitted shard to
// avoid a fresh allocation per datagram, and callers return buffers via
// ReleaseShards once a shard list has been sent downstream.
var shardArena = sync.Pool{
	New: func() any {
		return make([]byte, mtuLimit)
	},
}

// allocShard returns a zeroed buffer of exactly size bytes, backed by the
// shard arena when it fits.
func allocShard(size int) []byte {
	if size > mtuLimit {
		return make([]byte, size)
	}
	buf := shardArena.Get().([]byte)[:size]
	clear(buf)
	return buf
}

// ReleaseShards returns shard buffers obtained from a payloader back to the
// internal arena so later calls can reuse the backing array. It is safe,
// but unnecessary, to skip calling this: buffers that didn't come from the
// arena (oversized shards) are simply dropped.
func ReleaseShards(shards [][]byte) {
	for _, b := range shards {
		if cap(b) != mtuLimit {
			continue
		}
		shardArena.Put(b[:cap(b)]) //nolint:staticcheck // intentional pool reuse
	}
}

func putUint16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func putUint32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func putUint32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func getUint32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func getUint16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func getUint32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
