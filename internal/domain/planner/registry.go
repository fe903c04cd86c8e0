package planner

import (
	"sync"

	"github.com/careplan/careplan/internal/platform/telemetry"
)

// Run is one live planning conversation. Its mutex serialises Respond calls
// for the same session; the state machine itself has no internal locking.
type Run struct {
	mu    sync.Mutex
	State *State
}

// Lock takes exclusive ownership of the run's state.
func (r *Run) Lock() { r.mu.Lock() }

// Unlock releases the run.
func (r *Run) Unlock() { r.mu.Unlock() }

// Registry is the process-wide map of planning runs and their finished
// results, keyed by the caller's session id. Runs stay registered after
// completion so results remain fetchable for the process lifetime.
type Registry struct {
	mu      sync.RWMutex
	runs    map[string]*Run
	results map[string]*Result
	metrics *telemetry.TelemetryProvider
}

func NewRegistry(metrics *telemetry.TelemetryProvider) *Registry {
	return &Registry{
		runs:    make(map[string]*Run),
		results: make(map[string]*Result),
		metrics: metrics,
	}
}

// Put registers a run under sessionID, replacing any earlier run for the
// same session.
func (r *Registry) Put(sessionID string, s *State) *Run {
	run := &Run{State: s}
	r.mu.Lock()
	r.runs[sessionID] = run
	active := len(r.runs)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.HealthMetrics().SetActiveSessions(int64(active))
	}
	return run
}

// Get returns the run for sessionID, if one was started.
func (r *Registry) Get(sessionID string) (*Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[sessionID]
	return run, ok
}

// SaveResult stores the finished result for later retrieval.
func (r *Registry) SaveResult(sessionID string, res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[sessionID] = res
}

// Result returns the finished result for sessionID, if the run completed.
func (r *Registry) Result(sessionID string) (*Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[sessionID]
	return res, ok
}

// Len reports the number of registered runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
