package upload

import "sync"

// Status is the lifecycle state of a single upload attempt.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions can happen in this attempt.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Progress is a snapshot of an attempt's overall percent and status.
type Progress struct {
	Percent float64 `json:"percent"`
	Status  Status  `json:"status"`
}

// Observer receives progress updates in arrival order. The last update of a
// successful attempt is {100, success}; a failed attempt ends with {0, error}.
type Observer func(Progress)

// tracker owns the ProgressState of exactly one attempt.
type tracker struct {
	mu       sync.Mutex
	state    Progress
	observe  Observer
	transfer bool
}

func newTracker(observe Observer) *tracker {
	return &tracker{
		state:   Progress{Percent: 0, Status: StatusIdle},
		observe: observe,
	}
}

func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// start moves idle -> uploading. It is a no-op on any other state.
func (t *tracker) start(percent float64) {
	t.mu.Lock()
	if t.state.Status != StatusIdle {
		t.mu.Unlock()
		return
	}
	t.state = Progress{Percent: percent, Status: StatusUploading}
	p := t.state
	t.mu.Unlock()
	t.emit(p)
}

// advance raises the percent while uploading. Lower values are dropped so the
// observed sequence never decreases.
func (t *tracker) advance(percent float64) {
	t.mu.Lock()
	if t.state.Status != StatusUploading || percent <= t.state.Percent {
		t.mu.Unlock()
		return
	}
	t.state.Percent = percent
	p := t.state
	t.mu.Unlock()
	t.emit(p)
}

// openTransfer and closeTransfer gate byte-count events; the HTTP transport
// can deliver a late read after RoundTrip has already returned.
func (t *tracker) openTransfer() {
	t.mu.Lock()
	t.transfer = true
	t.mu.Unlock()
}

func (t *tracker) closeTransfer() {
	t.mu.Lock()
	t.transfer = false
	t.mu.Unlock()
}

func (t *tracker) advanceTransfer(percent float64) {
	t.mu.Lock()
	open := t.transfer
	t.mu.Unlock()
	if open {
		t.advance(percent)
	}
}

func (t *tracker) succeed() {
	t.finish(Progress{Percent: 100, Status: StatusSuccess})
}

func (t *tracker) fail() {
	t.finish(Progress{Percent: 0, Status: StatusError})
}

func (t *tracker) finish(p Progress) {
	t.mu.Lock()
	if t.state.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	t.transfer = false
	t.state = p
	t.mu.Unlock()
	t.emit(p)
}

func (t *tracker) emit(p Progress) {
	if t.observe != nil {
		t.observe(p)
	}
}
