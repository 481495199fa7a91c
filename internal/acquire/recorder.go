package acquire

import (
	"sync"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

// Recorder accumulates one SourceDiagnostics per adapter invocation. It is
// safe for concurrent use and keeps records even when the run later fails,
// so failure causes stay inspectable.
type Recorder struct {
	mu    sync.Mutex
	byID  map[string]domain.SourceDiagnostics
	order []string
}

// NewRecorder builds an empty diagnostics recorder.
func NewRecorder() *Recorder {
	return &Recorder{byID: make(map[string]domain.SourceDiagnostics)}
}

// Record stores the diagnostics for one source, replacing any prior record
// for the same source id within this run.
func (r *Recorder) Record(d domain.SourceDiagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[d.SourceID]; !exists {
		r.order = append(r.order, d.SourceID)
	}
	r.byID[d.SourceID] = d
}

// ByID returns a copy of the recorded diagnostics keyed by source id.
func (r *Recorder) ByID() map[string]domain.SourceDiagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.SourceDiagnostics, len(r.byID))
	for id, d := range r.byID {
		out[id] = d
	}
	return out
}

// All returns recorded diagnostics in first-recorded order.
func (r *Recorder) All() []domain.SourceDiagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SourceDiagnostics, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
