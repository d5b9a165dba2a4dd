package agent

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/xetas/tradebot/pkg/platform"
)

// idleTick bounds how long the loop waits for an event before checking for
// shutdown again.
const idleTick = time.Second

// Loop is the single-threaded event dispatcher. The goroutine running Run
// is the only writer of session state: protocol events, scheduled
// continuations, and operator-input completions all funnel through it.
type Loop struct {
	events  <-chan platform.Event
	tasks   chan func()
	handler func(platform.Event)

	mu  sync.Mutex
	ctx context.Context // set by Run; timers check it before re-posting
}

func newLoop(events <-chan platform.Event, handler func(platform.Event)) *Loop {
	return &Loop{
		events:  events,
		tasks:   make(chan func(), 128),
		handler: handler,
	}
}

// Run pumps events and tasks until ctx is cancelled. A panic inside a
// handler is recovered and logged; the loop keeps running.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.events:
			l.invoke(func() { l.handler(ev) })
		case fn := <-l.tasks:
			l.invoke(fn)
		case <-ticker.C:
			// idle tick: nothing arrived, loop back and stay responsive
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (l *Loop) context() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}

// Post queues fn to run on the dispatch goroutine. Safe to call from any
// goroutine; posts after shutdown are dropped.
func (l *Loop) Post(fn func()) {
	if ctx := l.context(); ctx != nil {
		select {
		case <-ctx.Done():
			return
		case l.tasks <- fn:
		}
		return
	}
	l.tasks <- fn
}

// PostAfter schedules fn to run on the dispatch goroutine after d. The
// timer fires off-thread and re-enters through Post, so nothing blocks the
// dispatcher while waiting; pending timers die with the loop's context.
func (l *Loop) PostAfter(d time.Duration, fn func()) {
	ctx := l.context()
	time.AfterFunc(d, func() {
		if ctx != nil && ctx.Err() != nil {
			return
		}
		l.Post(fn)
	})
}
