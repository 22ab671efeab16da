// Package frame runs cooperative tasks once per display refresh. A Loop is not
// safe for concurrent use; its owner serialises Step with everything else that
// touches the tasks' state.
package frame

import (
	"context"
	"time"
)

// Token cancels a scheduled task. Cancelling is idempotent and takes effect
// before the task's next invocation.
type Token struct {
	cancelled bool
}

func (t *Token) Cancel() {
	if t != nil {
		t.cancelled = true
	}
}

func (t *Token) Cancelled() bool {
	return t == nil || t.cancelled
}

// Task is invoked once per step with the step time. Returning false retires it.
type Task func(now time.Time) bool

type entry struct {
	token *Token
	task  Task
}

// Loop holds the scheduled tasks.
type Loop struct {
	tasks   []entry
	pending []entry
}

func NewLoop() *Loop {
	return &Loop{}
}

// Every schedules task to run on every step until it returns false or its
// token is cancelled. Tasks added during a step first run on the next step.
func (l *Loop) Every(task Task) *Token {
	tok := &Token{}
	l.pending = append(l.pending, entry{token: tok, task: task})
	return tok
}

// After runs fn once on the first step at or after d has elapsed, measured
// from the step that follows the call.
func (l *Loop) After(d time.Duration, fn func()) *Token {
	var deadline time.Time
	return l.Every(func(now time.Time) bool {
		if deadline.IsZero() {
			deadline = now.Add(d)
		}
		if now.Before(deadline) {
			return true
		}
		fn()
		return false
	})
}

// Step runs one refresh.
func (l *Loop) Step(now time.Time) {
	l.tasks = append(l.tasks, l.pending...)
	l.pending = l.pending[:0]
	kept := l.tasks[:0]
	for _, e := range l.tasks {
		if e.token.Cancelled() {
			continue
		}
		if !e.task(now) {
			e.token.cancelled = true
			continue
		}
		if !e.token.Cancelled() {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(l.tasks); i++ {
		l.tasks[i] = entry{}
	}
	l.tasks = kept
}

// Len reports the number of live tasks, including ones not yet started.
func (l *Loop) Len() int {
	n := 0
	for _, e := range l.tasks {
		if !e.token.Cancelled() {
			n++
		}
	}
	for _, e := range l.pending {
		if !e.token.Cancelled() {
			n++
		}
	}
	return n
}

// CancelAll cancels every scheduled task.
func (l *Loop) CancelAll() {
	for _, e := range l.tasks {
		e.token.Cancel()
	}
	for _, e := range l.pending {
		e.token.Cancel()
	}
}

// Drive calls step at rate Hz until ctx is done.
func Drive(ctx context.Context, rate int, step func(now time.Time)) {
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			step(now)
		}
	}
}
