/*
@Description: Moonlight/GameStream RTP media payloader
@Language: Go 1.23.4
*/

// Package moonlightpay fragments encoded video frames and audio packets
// into Moonlight/GameStream RTP datagram shards, attaching Reed-Solomon
// forward error correction and, for audio, AES-128-CBC encryption.
//
// A VideoPayloader or AudioPayloader is not safe for concurrent use: each
// instance owns an exclusive sequence of frame/stream-packet/RTP counters
// that must advance in call order. Use one payloader per stream direction
// per connection, and serialize calls to it (a single goroutine, or a
// channel-fed worker) the way an upstream video/audio encoder naturally
// already serializes its own output.
package moonlightpay
