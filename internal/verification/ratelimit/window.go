// Package ratelimit throttles credential submissions per user with an
// in-memory sliding window. It is process-local; a restart forgets every
// window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"verigate/pkg/requestcontext"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Window is a sliding-window limiter keyed by an arbitrary string.
type Window struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// New creates an empty limiter.
func New() *Window {
	return &Window{buckets: make(map[string]*slidingWindow)}
}

// Allow records one attempt for key if fewer than limit attempts happened in
// the trailing window. Time is taken from the request context.
func (w *Window) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := requestcontext.Now(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	sw := w.bucket(key, window)
	sw.cleanup(now)

	if len(sw.timestamps) >= limit {
		return &Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: sw.timestamps[0].Add(window),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &Result{
		Allowed:   true,
		Remaining: limit - len(sw.timestamps),
		Limit:     limit,
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Reset forgets every attempt recorded for key.
func (w *Window) Reset(_ context.Context, key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.buckets, key)
	return nil
}

// Len reports how many keys currently hold a window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buckets)
}

// bucket returns the window for key, creating it. Callers hold w.mu.
func (w *Window) bucket(key string, window time.Duration) *slidingWindow {
	if sw := w.buckets[key]; sw != nil {
		sw.window = window
		return sw
	}
	sw := &slidingWindow{window: window}
	w.buckets[key] = sw
	return sw
}

// cleanup drops timestamps that fell out of the window.
func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
