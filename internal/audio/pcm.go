package audio

import (
	"encoding/binary"
	"math"
)

// BytesPerSample is the size of one S16 sample.
const BytesPerSample = 2

// PCM16ToFloat32 converts 16-bit signed little-endian PCM to float32
// samples in [-1.0, 1.0]. A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / BytesPerSample
	samples := make([]float32, n)
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// RMS returns the root-mean-square level of a 16-bit PCM buffer,
// normalized to [0, 1].
func RMS(pcm []byte) float64 {
	n := len(pcm) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:i*2+2]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// DurationMs returns the playback length of a mono 16-bit PCM buffer.
func DurationMs(pcm []byte, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return len(pcm) / BytesPerSample * 1000 / sampleRate
}

// intsToPCM16 packs integer samples into little-endian S16, clamping
// anything outside the int16 range.
func intsToPCM16(samples []int) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return out
}
