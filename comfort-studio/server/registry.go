package server

import (
	"sort"
	"sync"
	"time"

	"maro_automation/comfort-studio/pipeline"
)

// RunStatus is the lifecycle state of an API-triggered run
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// RunInfo is what the API reports about a run
type RunInfo struct {
	ID         string           `json:"id"`
	Request    pipeline.Request `json:"request"`
	Status     RunStatus        `json:"status"`
	Stage      string           `json:"stage,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Result     *pipeline.Result `json:"result,omitempty"`
}

// Registry tracks runs in memory
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*RunInfo
	now  func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{runs: map[string]*RunInfo{}, now: time.Now}
}

func (r *Registry) add(id string, req pipeline.Request) RunInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := &RunInfo{ID: id, Request: req, Status: StatusQueued, CreatedAt: r.now()}
	r.runs[id] = info
	return *info
}

// SetStage records the stage a run entered. It has the signature of
// pipeline.Options.OnStage.
func (r *Registry) SetStage(id, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.runs[id]; ok {
		info.Status = StatusRunning
		info.Stage = stage
	}
}

func (r *Registry) finish(id string, result *pipeline.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.runs[id]
	if !ok {
		return
	}
	now := r.now()
	info.FinishedAt = &now
	info.Result = result
	if err != nil {
		info.Status = StatusFailed
		info.Error = err.Error()
		return
	}
	info.Status = StatusSucceeded
}

// Get returns a copy of the run
func (r *Registry) Get(id string) (RunInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.runs[id]
	if !ok {
		return RunInfo{}, false
	}
	return *info, true
}

// List returns every run, newest first
func (r *Registry) List() []RunInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RunInfo, 0, len(r.runs))
	for _, info := range r.runs {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
