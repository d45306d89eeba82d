package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"pebfutar.app/internal/logging"
)

// Scheduler runs blocking work away from the loop. The continuation work
// returns, if any, is run back on the loop.
type Scheduler interface {
	Go(work func() func())
}

// ErrLoopStopped is returned when posting to a loop that has exited.
var ErrLoopStopped = errors.New("loop stopped")

// Loop is the single goroutine that owns controller state. Everything that
// touches a Controller is posted here.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	once    sync.Once
	running atomic.Bool
	logger  *slog.Logger
}

func NewLoop(buffer int, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "loop")),
	}
}

// Run executes posted tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.once.Do(func() { close(l.done) })
	defer l.running.Store(false)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

// Running reports whether Run is executing tasks.
func (l *Loop) Running() bool {
	return l.running.Load()
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in loop task", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// Post queues fn. It reports false once the loop has exited.
func (l *Loop) Post(fn func()) bool {
	return l.post(context.Background(), fn) == nil
}

func (l *Loop) post(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs work on its own goroutine and posts the continuation back.
func (l *Loop) Go(work func() func()) {
	go func() {
		if cont := work(); cont != nil {
			if !l.Post(cont) {
				l.logger.Debug("dropping continuation after loop exit")
			}
		}
	}()
}
