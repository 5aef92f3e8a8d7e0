package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/audio"
)

const (
	// CaptureSampleRate is the microphone rate sent to the assistant. It must
	// never be conflated with the 24 kHz playback rate.
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000

	captureFrameSamples = 4096
	captureMimeType     = "audio/pcm;rate=16000"
)

var (
	ErrAlreadyActive = errors.New("live call already active")
	ErrNotConnected  = errors.New("live call not connected")
)

// State is the live-call lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Sink receives the assistant side of the call for delivery to the client.
type Sink interface {
	// PlayLiveAudio delivers one chunk of raw 24 kHz mono PCM16 at its
	// scheduled start time.
	PlayLiveAudio(pcm []byte)
	// FlushLiveAudio tells the client to drop any locally buffered audio
	// after a barge-in.
	FlushLiveAudio()
	LiveTranscription(text string, speaker repositories.LiveSpeaker)
	LiveEnded()
}

// Manager runs one realtime voice session: microphone frames out, assistant
// audio chunks scheduled gaplessly back, barge-in and teardown handling.
type Manager struct {
	dialer repositories.LiveDialer
	clock  clock.Clock
	logger *zap.Logger
	sink   Sink

	mu        sync.Mutex
	state     State
	session   repositories.LiveSession
	micBuf    []float32
	queue     map[*scheduledChunk]struct{}
	nextStart time.Time
}

// scheduledChunk is one in-flight playback handle in the live queue.
type scheduledChunk struct {
	pcm        []byte
	duration   time.Duration
	startTimer *clock.Timer
	doneTimer  *clock.Timer
	stopped    bool
}

func NewManager(dialer repositories.LiveDialer, clk clock.Clock, logger *zap.Logger, sink Sink) *Manager {
	return &Manager{
		dialer: dialer,
		clock:  clk,
		logger: logger,
		sink:   sink,
		state:  StateDisconnected,
		queue:  make(map[*scheduledChunk]struct{}),
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start opens the session. Microphone audio is rejected until the handshake
// resolves. Only one session can be active at a time.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return ErrAlreadyActive
	}
	m.state = StateConnecting
	m.mu.Unlock()

	session, err := m.dialer.Connect(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		return fmt.Errorf("connect live session: %w", err)
	}

	m.mu.Lock()
	m.state = StateConnected
	m.session = session
	m.micBuf = nil
	m.nextStart = time.Time{}
	m.mu.Unlock()

	go m.consume(session)

	m.logger.Info("Live call connected")
	return nil
}

// SendMic feeds captured microphone samples. Full 4096-sample frames are
// encoded as 16-bit PCM, base64-wrapped, and sent with the capture mime
// descriptor; the remainder stays buffered for the next call.
func (m *Manager) SendMic(samples []float32) error {
	m.mu.Lock()
	if m.state != StateConnected || m.session == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.micBuf = append(m.micBuf, samples...)

	var frames []string
	for len(m.micBuf) >= captureFrameSamples {
		frames = append(frames, audio.EncodePCM16Base64(m.micBuf[:captureFrameSamples]))
		m.micBuf = m.micBuf[captureFrameSamples:]
	}
	session := m.session
	m.mu.Unlock()

	for _, frame := range frames {
		if err := session.SendAudio(frame, captureMimeType); err != nil {
			return fmt.Errorf("send microphone frame: %w", err)
		}
	}
	return nil
}

// End tears the call down: the queue is force-stopped and cleared, schedule
// state resets, and the session closes. Ending an ended call is a no-op.
func (m *Manager) End() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	session := m.session
	m.session = nil
	m.micBuf = nil
	m.clearQueueLocked()
	m.mu.Unlock()

	if session != nil {
		if err := session.Close(); err != nil {
			m.logger.Warn("Failed to close live session", zap.Error(err))
		}
	}
	m.logger.Info("Live call ended")
}

// consume drains the session's event stream on a dedicated goroutine.
func (m *Manager) consume(session repositories.LiveSession) {
	for event := range session.Events() {
		switch event.Type {
		case repositories.LiveEventAudioChunk:
			m.schedule(event.AudioChunk)
		case repositories.LiveEventInterrupted:
			m.interrupt()
		case repositories.LiveEventTranscription:
			m.sink.LiveTranscription(event.Transcription, event.Speaker)
		case repositories.LiveEventClosed:
			m.End()
			m.sink.LiveEnded()
			return
		}
	}
	// Stream closed without an explicit close event.
	m.End()
	m.sink.LiveEnded()
}

// schedule queues one inbound chunk at max(nextStart, now) and advances
// nextStart by the chunk's duration. This offset is what keeps sequential
// chunks gapless under network jitter.
func (m *Manager) schedule(b64 string) {
	buffer, err := audio.DecodePCM16(b64, PlaybackSampleRate, 1)
	if err != nil {
		m.logger.Error("Dropping malformed live audio chunk", zap.Error(err))
		return
	}

	chunk := &scheduledChunk{
		pcm:      audio.EncodePCM16(buffer.Data),
		duration: time.Duration(buffer.Duration() * float64(time.Second)),
	}

	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	start := m.nextStart
	if start.IsZero() || start.Before(now) {
		start = now
	}
	m.nextStart = start.Add(chunk.duration)
	m.queue[chunk] = struct{}{}

	delay := start.Sub(now)
	if delay > 0 {
		chunk.startTimer = m.clock.AfterFunc(delay, func() { m.fire(chunk) })
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.fire(chunk)
}

// fire delivers a chunk at its start time and arms its completion timer.
func (m *Manager) fire(chunk *scheduledChunk) {
	m.mu.Lock()
	if chunk.stopped {
		m.mu.Unlock()
		return
	}
	chunk.doneTimer = m.clock.AfterFunc(chunk.duration, func() { m.complete(chunk) })
	m.mu.Unlock()

	m.sink.PlayLiveAudio(chunk.pcm)
}

// complete removes a chunk from the queue when its playback naturally ends.
func (m *Manager) complete(chunk *scheduledChunk) {
	m.mu.Lock()
	delete(m.queue, chunk)
	m.mu.Unlock()
}

// interrupt handles barge-in: every scheduled chunk is force-stopped, the
// queue empties, and nextStart resets so the next chunk plays relative to
// "now" again.
func (m *Manager) interrupt() {
	m.mu.Lock()
	m.clearQueueLocked()
	m.mu.Unlock()

	m.sink.FlushLiveAudio()
	m.logger.Debug("Live playback interrupted by barge-in")
}

func (m *Manager) clearQueueLocked() {
	for chunk := range m.queue {
		chunk.stopped = true
		if chunk.startTimer != nil {
			chunk.startTimer.Stop()
		}
		if chunk.doneTimer != nil {
			chunk.doneTimer.Stop()
		}
	}
	m.queue = make(map[*scheduledChunk]struct{})
	m.nextStart = time.Time{}
}
