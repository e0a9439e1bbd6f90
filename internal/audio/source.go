// Package audio provides the capture sources that feed raw 16-bit PCM
// chunks to a listening session: the default microphone via malgo and
// WAV files for offline replay.
package audio

// Chunk is one captured buffer of 16-bit signed little-endian PCM. A chunk
// is never modified after it is handed to the consumer.
type Chunk []byte

// Source delivers captured audio chunks to a callback. The callback may be
// invoked from a goroutine owned by the source and must not block.
type Source interface {
	// Start begins delivering chunks to onChunk.
	Start(onChunk func(Chunk)) error
	// Stop ends delivery. No callback runs after Stop returns.
	Stop() error
}
