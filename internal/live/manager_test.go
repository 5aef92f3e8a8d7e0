package live

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/audio"
)

type sentFrame struct {
	data string
	mime string
}

type fakeSession struct {
	events    chan repositories.LiveEvent
	mu        sync.Mutex
	sent      []sentFrame
	closes    int
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan repositories.LiveEvent, 16)}
}

func (s *fakeSession) SendAudio(data, mime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentFrame{data: data, mime: mime})
	return nil
}

func (s *fakeSession) Events() <-chan repositories.LiveEvent { return s.events }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

func (s *fakeSession) sentFrames() []sentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentFrame, len(s.sent))
	copy(out, s.sent)
	return out
}

type fakeDialer struct {
	session *fakeSession
	err     error
}

func (d *fakeDialer) Connect(ctx context.Context) (repositories.LiveSession, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type fakeSink struct {
	clk *clock.Mock

	mu          sync.Mutex
	playTimes   []time.Time
	flushes     int
	transcripts []string
	ended       int
}

func (s *fakeSink) PlayLiveAudio(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playTimes = append(s.playTimes, s.clk.Now())
}

func (s *fakeSink) FlushLiveAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

func (s *fakeSink) LiveTranscription(text string, speaker repositories.LiveSpeaker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, string(speaker)+":"+text)
}

func (s *fakeSink) LiveEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended++
}

func (s *fakeSink) playedAt() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.playTimes))
	copy(out, s.playTimes)
	return out
}

// chunkOf builds a base64 playback-rate chunk of the given duration.
func chunkOf(d time.Duration) string {
	samples := make([]float32, int(d.Seconds()*PlaybackSampleRate))
	return audio.EncodePCM16Base64(samples)
}

func newTestManager(t *testing.T) (*Manager, *fakeSession, *fakeSink, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	session := newFakeSession()
	sink := &fakeSink{clk: clk}
	mgr := NewManager(&fakeDialer{session: session}, clk, zap.NewNop(), sink)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	return mgr, session, sink, clk
}

func settle() { time.Sleep(20 * time.Millisecond) }

func TestGaplessScheduling(t *testing.T) {
	mgr, session, sink, clk := newTestManager(t)
	defer mgr.End()

	d1 := 100 * time.Millisecond
	d2 := 200 * time.Millisecond
	d3 := 150 * time.Millisecond
	for _, d := range []time.Duration{d1, d2, d3} {
		session.events <- repositories.LiveEvent{Type: repositories.LiveEventAudioChunk, AudioChunk: chunkOf(d)}
	}
	settle()

	// First chunk plays immediately; the rest wait for their slots.
	if got := len(sink.playedAt()); got != 1 {
		t.Fatalf("Expected 1 chunk played before advancing clock, got %d", got)
	}

	clk.Add(d1)
	settle()
	clk.Add(d2)
	settle()

	times := sink.playedAt()
	if len(times) != 3 {
		t.Fatalf("Expected 3 chunks played, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap != d1 {
		t.Errorf("Expected chunk 2 to start %v after chunk 1, got %v", d1, gap)
	}
	if gap := times[2].Sub(times[1]); gap != d2 {
		t.Errorf("Expected chunk 3 to start %v after chunk 2, got %v", d2, gap)
	}
}

func TestInterruptionResetsSchedule(t *testing.T) {
	mgr, session, sink, _ := newTestManager(t)
	defer mgr.End()

	session.events <- repositories.LiveEvent{Type: repositories.LiveEventAudioChunk, AudioChunk: chunkOf(500 * time.Millisecond)}
	session.events <- repositories.LiveEvent{Type: repositories.LiveEventAudioChunk, AudioChunk: chunkOf(500 * time.Millisecond)}
	settle()

	session.events <- repositories.LiveEvent{Type: repositories.LiveEventInterrupted}
	settle()

	sink.mu.Lock()
	flushes := sink.flushes
	sink.mu.Unlock()
	if flushes != 1 {
		t.Fatalf("Expected 1 flush after barge-in, got %d", flushes)
	}

	// With the schedule reset, a new chunk plays relative to "now" even
	// though the interrupted chunks had claimed the next second.
	before := len(sink.playedAt())
	session.events <- repositories.LiveEvent{Type: repositories.LiveEventAudioChunk, AudioChunk: chunkOf(100 * time.Millisecond)}
	settle()
	if got := len(sink.playedAt()); got != before+1 {
		t.Errorf("Expected chunk after barge-in to play immediately, played %d of %d", got-before, 1)
	}
}

func TestMicrophoneFraming(t *testing.T) {
	mgr, session, _, _ := newTestManager(t)
	defer mgr.End()

	if err := mgr.SendMic(make([]float32, 5000)); err != nil {
		t.Fatalf("Unexpected send error: %v", err)
	}
	frames := session.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 full frame from 5000 samples, got %d", len(frames))
	}
	if frames[0].mime != "audio/pcm;rate=16000" {
		t.Errorf("Expected capture mime descriptor, got %q", frames[0].mime)
	}
	raw, err := base64.StdEncoding.DecodeString(frames[0].data)
	if err != nil {
		t.Fatalf("Frame should be valid base64: %v", err)
	}
	if len(raw) != captureFrameSamples*2 {
		t.Errorf("Expected %d PCM bytes per frame, got %d", captureFrameSamples*2, len(raw))
	}

	// The 904-sample remainder is kept for the next batch.
	if err := mgr.SendMic(make([]float32, captureFrameSamples-904)); err != nil {
		t.Fatalf("Unexpected send error: %v", err)
	}
	if frames := session.sentFrames(); len(frames) != 2 {
		t.Errorf("Expected buffered remainder to complete a second frame, got %d frames", len(frames))
	}
}

func TestEndIsIdempotent(t *testing.T) {
	mgr, session, _, _ := newTestManager(t)

	mgr.End()
	mgr.End()

	session.mu.Lock()
	closes := session.closes
	session.mu.Unlock()
	if closes != 1 {
		t.Errorf("Expected session closed once, got %d", closes)
	}
	if mgr.State() != StateDisconnected {
		t.Errorf("Expected disconnected state, got %s", mgr.State())
	}
	if err := mgr.SendMic(make([]float32, 10)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected after end, got %v", err)
	}
}

func TestStartWhileActive(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	defer mgr.End()

	if err := mgr.Start(context.Background()); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Expected ErrAlreadyActive, got %v", err)
	}
}

func TestDialFailureDisconnects(t *testing.T) {
	clk := clock.NewMock()
	sink := &fakeSink{clk: clk}
	mgr := NewManager(&fakeDialer{err: errors.New("permission denied")}, clk, zap.NewNop(), sink)

	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("Expected dial error, got nil")
	}
	if mgr.State() != StateDisconnected {
		t.Errorf("Expected disconnected state after failed dial, got %s", mgr.State())
	}
}

func TestServerCloseTearsDown(t *testing.T) {
	mgr, session, sink, _ := newTestManager(t)

	session.events <- repositories.LiveEvent{Type: repositories.LiveEventTranscription, Transcription: "السلامة أولاً", Speaker: repositories.LiveSpeakerModel}
	session.events <- repositories.LiveEvent{Type: repositories.LiveEventClosed}
	settle()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.ended != 1 {
		t.Errorf("Expected one ended notification, got %d", sink.ended)
	}
	if len(sink.transcripts) != 1 || sink.transcripts[0] != "model:السلامة أولاً" {
		t.Errorf("Expected tagged transcription passthrough, got %v", sink.transcripts)
	}
	if mgr.State() != StateDisconnected {
		t.Errorf("Expected disconnected after server close, got %s", mgr.State())
	}
}
