package audio

import (
	"encoding/base64"
	"fmt"
)

// Buffer holds decoded mono-or-interleaved audio as normalized float32
// samples in [-1, 1].
type Buffer struct {
	Data       []float32
	SampleRate int
	Channels   int
}

// Frames returns the per-channel frame count.
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DecodePCM16 converts base64-encoded signed 16-bit little-endian PCM into a
// normalized buffer. The byte length must be a multiple of 2 x channels.
func DecodePCM16(b64 string, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	return DecodePCM16Bytes(raw, sampleRate, channels)
}

// DecodePCM16Bytes is DecodePCM16 for raw (already base64-decoded) bytes.
func DecodePCM16Bytes(raw []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if len(raw)%(2*channels) != 0 {
		return nil, fmt.Errorf("pcm payload of %d bytes is not a multiple of %d", len(raw), 2*channels)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(s) / 32768.0
	}

	return &Buffer{
		Data:       samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// EncodePCM16 converts normalized float32 samples to signed 16-bit
// little-endian PCM bytes, clamping out-of-range values.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		s := int16(v * 32767.0)
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// EncodePCM16Base64 encodes samples for transmission as a base64 PCM frame.
func EncodePCM16Base64(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}
