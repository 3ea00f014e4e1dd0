package bpm

import (
	"context"
	"sync"
)

// Tracker holds the BPM of the currently selected track. Every Start
// supersedes the previous one; a result is kept only if no newer Start or
// Invalidate happened before it resolved.
type Tracker struct {
	det *Detector

	mu        sync.Mutex
	gen       uint64
	bpm       int
	known     bool
	detecting bool
	cancel    context.CancelFunc

	wg sync.WaitGroup
}

// NewTracker returns a Tracker running detections with d.
func NewTracker(d *Detector) *Tracker {
	return &Tracker{det: d}
}

// Start begins detection for path. done, if non-nil, is called with the
// result only when it is still current.
func (t *Tracker) Start(ctx context.Context, path string, done func(bpm int, ok bool)) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	gen := t.gen
	t.cancel = cancel
	t.bpm, t.known, t.detecting = 0, false, true
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		v, ok := t.det.DetectFromFile(ctx, path)

		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.bpm, t.known, t.detecting = v, ok, false
		t.cancel = nil
		t.mu.Unlock()

		if done != nil {
			done(v, ok)
		}
	}()
}

// Invalidate forgets the current estimate and discards any running
// detection.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	t.bpm, t.known, t.detecting = 0, false, false
}

// BPM returns the estimate for the current track.
func (t *Tracker) BPM() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm, t.known
}

// Detecting reports whether a current detection is still running.
func (t *Tracker) Detecting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detecting
}

// Close invalidates and waits for running detections to return.
func (t *Tracker) Close() {
	t.Invalidate()
	t.wg.Wait()
}
