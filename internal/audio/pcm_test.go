package audio

import (
	"encoding/base64"
	"math"
	"testing"
)

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

func TestDecodePCM16(t *testing.T) {
	raw := pcmBytes(0, 16384, -16384, 32767, -32768, 123)
	b64 := base64.StdEncoding.EncodeToString(raw)

	buf, err := DecodePCM16(b64, 24000, 1)
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}

	if buf.Frames() != 6 {
		t.Errorf("Expected 6 frames, got %d", buf.Frames())
	}
	if got := buf.Duration(); math.Abs(got-6.0/24000.0) > 1e-9 {
		t.Errorf("Expected duration %f, got %f", 6.0/24000.0, got)
	}
	for i, v := range buf.Data {
		if v < -1.0 || v > 1.0 {
			t.Errorf("Sample %d out of range: %f", i, v)
		}
	}
	if math.Abs(float64(buf.Data[1])-0.5) > 1e-4 {
		t.Errorf("Expected sample 1 near 0.5, got %f", buf.Data[1])
	}
	if buf.Data[4] != -1.0 {
		t.Errorf("Expected minimum sample -1.0, got %f", buf.Data[4])
	}
}

func TestDecodePCM16Stereo(t *testing.T) {
	raw := pcmBytes(100, 200, 300, 400)
	buf, err := DecodePCM16Bytes(raw, 16000, 2)
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if buf.Frames() != 2 {
		t.Errorf("Expected 2 frames for 4 interleaved stereo samples, got %d", buf.Frames())
	}
}

func TestDecodePCM16RejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		b64        string
		sampleRate int
		channels   int
	}{
		{"odd byte length", base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), 24000, 1},
		{"not multiple of frame size", base64.StdEncoding.EncodeToString([]byte{1, 2}), 24000, 2},
		{"malformed base64", "not//valid!!", 24000, 1},
		{"zero sample rate", base64.StdEncoding.EncodeToString([]byte{1, 2}), 0, 1},
		{"zero channels", base64.StdEncoding.EncodeToString([]byte{1, 2}), 24000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePCM16(tt.b64, tt.sampleRate, tt.channels); err == nil {
				t.Error("Expected decode error, got nil")
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.999, -0.999}
	b64 := EncodePCM16Base64(in)

	buf, err := DecodePCM16(b64, 16000, 1)
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if len(buf.Data) != len(in) {
		t.Fatalf("Expected %d samples, got %d", len(in), len(buf.Data))
	}
	for i := range in {
		if math.Abs(float64(buf.Data[i]-in[i])) > 1e-3 {
			t.Errorf("Sample %d: expected %f, got %f", i, in[i], buf.Data[i])
		}
	}
}

func TestEncodePCM16Clamps(t *testing.T) {
	out := EncodePCM16([]float32{2.0, -2.0})
	if s := int16(uint16(out[0]) | uint16(out[1])<<8); s != 32767 {
		t.Errorf("Expected clamp to 32767, got %d", s)
	}
	if s := int16(uint16(out[2]) | uint16(out[3])<<8); s != -32767 {
		t.Errorf("Expected clamp to -32767, got %d", s)
	}
}
