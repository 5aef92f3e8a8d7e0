package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/internal/audio"
)

const (
	// SampleRate is the fixed synthesized-speech playback rate. It is
	// deliberately different from the 16 kHz microphone capture rate.
	SampleRate = 24000
	Channels   = 1

	progressInterval = 100 * time.Millisecond
)

// Update reports transient playback state for one message. Consumers write it
// into the message's is_speaking/current_time/duration fields.
type Update struct {
	ChatID      string
	MessageID   string
	Speaking    bool
	CurrentTime float64
	Duration    float64
}

// Player drives spoken-message playback. It owns a single "now playing" slot:
// starting message A while message B plays always stops B first. Decoded
// buffers are cached per message id and never evicted; a session holds a
// bounded number of messages.
type Player struct {
	clock   clock.Clock
	logger  *zap.Logger
	publish func(Update)

	mu      sync.Mutex
	buffers map[string]*audio.Buffer
	active  *activePlayback
}

type activePlayback struct {
	chatID    string
	messageID string
	startedAt time.Time
	duration  float64
	done      chan struct{}
}

// NewPlayer creates a playback controller. publish is invoked from the
// player's goroutines, sometimes with the player's lock held, and must not
// call back into the player.
func NewPlayer(clk clock.Clock, logger *zap.Logger, publish func(Update)) *Player {
	return &Player{
		clock:   clk,
		logger:  logger,
		publish: publish,
		buffers: make(map[string]*audio.Buffer),
	}
}

// Play starts playback of a message's speech payload, stopping whatever was
// playing before. Decode failures leave the message in a non-speaking state.
func (p *Player) Play(chatID, messageID, base64PCM string) error {
	p.mu.Lock()

	var stopped *Update
	if p.active != nil {
		stopped = p.stopLocked()
	}

	buffer, ok := p.buffers[messageID]
	if !ok {
		var err error
		buffer, err = audio.DecodePCM16(base64PCM, SampleRate, Channels)
		if err != nil {
			p.mu.Unlock()
			if stopped != nil {
				p.publish(*stopped)
			}
			p.logger.Error("Failed to decode speech payload",
				zap.String("messageID", messageID),
				zap.Error(err))
			p.publish(Update{ChatID: chatID, MessageID: messageID})
			return fmt.Errorf("decode speech for message %s: %w", messageID, err)
		}
		p.buffers[messageID] = buffer
	}

	active := &activePlayback{
		chatID:    chatID,
		messageID: messageID,
		startedAt: p.clock.Now(),
		duration:  buffer.Duration(),
		done:      make(chan struct{}),
	}
	p.active = active
	p.mu.Unlock()

	if stopped != nil {
		p.publish(*stopped)
	}
	p.publish(Update{
		ChatID:    chatID,
		MessageID: messageID,
		Speaking:  true,
		Duration:  active.duration,
	})

	go p.run(active)
	return nil
}

// Stop halts the in-progress playback, if any. Stopping an idle player is a
// no-op. The position resets to zero.
func (p *Player) Stop() {
	p.mu.Lock()
	update := p.stopLocked()
	p.mu.Unlock()
	if update != nil {
		p.publish(*update)
	}
}

// Active reports the message currently occupying the playback slot.
func (p *Player) Active() (chatID, messageID string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return "", "", false
	}
	return p.active.chatID, p.active.messageID, true
}

func (p *Player) stopLocked() *Update {
	if p.active == nil {
		return nil
	}
	active := p.active
	p.active = nil
	close(active.done)
	return &Update{
		ChatID:    active.chatID,
		MessageID: active.messageID,
		Duration:  active.duration,
	}
}

// run emits progress ticks until the buffer plays out or the slot is stopped.
func (p *Player) run(active *activePlayback) {
	ticker := p.clock.Ticker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-active.done:
			return
		case <-ticker.C:
			if !p.tick(active) {
				return
			}
		}
	}
}

// tick publishes one progress update, or the final not-speaking update on
// natural end. The slot check and the publish happen under the lock: a tick
// selected just before Stop must never land after Stop's final update.
func (p *Player) tick(active *activePlayback) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != active {
		return false
	}

	elapsed := p.clock.Since(active.startedAt).Seconds()
	if elapsed >= active.duration {
		p.active = nil
		p.publish(Update{
			ChatID:    active.chatID,
			MessageID: active.messageID,
			Duration:  active.duration,
		})
		return false
	}

	p.publish(Update{
		ChatID:      active.chatID,
		MessageID:   active.messageID,
		Speaking:    true,
		CurrentTime: elapsed,
		Duration:    active.duration,
	})
	return true
}
