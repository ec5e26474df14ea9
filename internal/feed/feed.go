// Package feed carries user-facing status lines from background work to
// whoever displays them.
package feed

import (
	"context"
	"drivemirror/internal/logger"
	"drivemirror/internal/model"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Feed owns the consuming end of the message channel. Producers only ever
// see the send side. The last size messages are kept for Recent. Messages
// are stamped with clock when they are recorded.
type Feed struct {
	ch    chan model.Message
	clock clockwork.Clock
	mu    sync.RWMutex
	buf   []model.Message
	size  int
}

func New(size int, clock clockwork.Clock) *Feed {
	if size < 1 {
		size = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Feed{
		ch:    make(chan model.Message, 64),
		clock: clock,
		size:  size,
	}
}

func (f *Feed) Sink() chan<- model.Message {
	return f.ch
}

// Run consumes messages until ctx is done, then drains what is already
// queued and returns.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case msg := <-f.ch:
			f.record(msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-f.ch:
					f.record(msg)
				default:
					return
				}
			}
		}
	}
}

func (f *Feed) record(msg model.Message) {
	if msg.Time.IsZero() {
		msg.Time = f.clock.Now()
	}

	logger.Log.Info(msg.Text,
		zap.String("origin", msg.Origin))

	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf = append(f.buf, msg)
	if over := len(f.buf) - f.size; over > 0 {
		f.buf = append(f.buf[:0], f.buf[over:]...)
	}
}

// Recent returns up to n of the newest messages, oldest first. n <= 0
// returns everything kept.
func (f *Feed) Recent(n int) []model.Message {
	f.mu.RLock()
	defer f.mu.RUnlock()

	start := 0
	if n > 0 && n < len(f.buf) {
		start = len(f.buf) - n
	}

	out := make([]model.Message, len(f.buf)-start)
	copy(out, f.buf[start:])
	return out
}

// Post sends one message, giving up if ctx ends first. The feed stamps it
// on arrival.
func Post(ctx context.Context, ch chan<- model.Message, origin, format string, args ...any) {
	if ch == nil {
		return
	}

	msg := model.Message{
		Origin: origin,
		Text:   fmt.Sprintf(format, args...),
	}

	select {
	case ch <- msg:
	case <-ctx.Done():
	}
}
