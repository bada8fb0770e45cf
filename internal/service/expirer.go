package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
)

// MessageKey identifies a scheduled message.
func MessageKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

type expiry struct {
	timer Timer
	once  sync.Once
	fn    func()
	done  chan struct{}
}

func (e *expiry) run(log *zap.Logger, key string) {
	e.once.Do(func() {
		defer close(e.done)
		defer func() {
			if r := recover(); r != nil {
				log.Error("expiry task panicked", zap.String("key", key), zap.Any("panic", r))
			}
		}()
		e.fn()
	})
}

// Expirer runs one task per key after a delay. Tasks can be cancelled or fired early.
type Expirer struct {
	clock Clock
	log   *zap.Logger

	mu      sync.Mutex
	pending map[string]*expiry
	stopped bool
}

func NewExpirer(clock Clock, name string) *Expirer {
	return &Expirer{
		clock:   clock,
		log:     logger.Named(name),
		pending: make(map[string]*expiry),
	}
}

// Schedule runs fn after d. The returned channel closes once fn has returned or the task was
// cancelled. Scheduling an existing key replaces the previous task. A non-positive d runs fn
// before returning.
func (x *Expirer) Schedule(key string, d time.Duration, fn func()) <-chan struct{} {
	e := &expiry{fn: fn, done: make(chan struct{})}

	x.mu.Lock()
	if x.stopped || d <= 0 {
		x.mu.Unlock()
		e.run(x.log, key)
		return e.done
	}
	if prev, ok := x.pending[key]; ok {
		prev.timer.Stop()
		prev.once.Do(func() { close(prev.done) })
	}
	x.pending[key] = e
	e.timer = x.clock.AfterFunc(d, func() { x.fire(key, e) })
	x.mu.Unlock()
	return e.done
}

func (x *Expirer) fire(key string, e *expiry) {
	x.mu.Lock()
	if x.pending[key] == e {
		delete(x.pending, key)
	}
	x.mu.Unlock()
	e.run(x.log, key)
}

// Cancel drops a pending task without running it. It reports whether one was pending.
func (x *Expirer) Cancel(key string) bool {
	x.mu.Lock()
	e, ok := x.pending[key]
	delete(x.pending, key)
	x.mu.Unlock()
	if !ok {
		return false
	}
	e.timer.Stop()
	e.once.Do(func() { close(e.done) })
	return true
}

// Pending is the number of scheduled tasks.
func (x *Expirer) Pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.pending)
}

// Flush runs every pending task now and makes later schedules run inline.
func (x *Expirer) Flush() {
	x.mu.Lock()
	x.stopped = true
	tasks := x.pending
	x.pending = make(map[string]*expiry)
	x.mu.Unlock()

	for key, e := range tasks {
		e.timer.Stop()
		e.run(x.log, key)
	}
}

// Stop cancels every pending task without running it.
func (x *Expirer) Stop() {
	x.mu.Lock()
	x.stopped = true
	tasks := x.pending
	x.pending = make(map[string]*expiry)
	x.mu.Unlock()

	for _, e := range tasks {
		e.timer.Stop()
		e.once.Do(func() { close(e.done) })
	}
}

// ScheduleDelete deletes a message after d. An already deleted message is not an error.
func (x *Expirer) ScheduleDelete(ctx context.Context, m messenger.Messenger, chatID int64, messageID int, d time.Duration) <-chan struct{} {
	key := MessageKey(chatID, messageID)
	return x.Schedule(key, d, func() {
		err := m.Delete(context.WithoutCancel(ctx), chatID, messageID)
		switch {
		case err == nil:
		case errors.Is(err, messenger.ErrMessageGone):
			x.log.Debug("message already gone", zap.String("key", key))
		default:
			x.log.Warn("delete message failed", zap.String("key", key), zap.Error(err))
		}
	})
}
