package daemon

import (
	"drivemirror/internal/model"
	"sync"
	"time"
)

type RunState struct {
	mu         sync.RWMutex
	ID         string
	Action     string
	Status     model.RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Err        error
}

func NewRunState(id, action string, now time.Time) *RunState {
	return &RunState{
		ID:        id,
		Action:    action,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}
}

func (s *RunState) Finish(err error, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FinishedAt = &now
	s.Err = err
	if err != nil {
		s.Status = model.RunStatusFailed
	} else {
		s.Status = model.RunStatusDone
	}
}

func (s *RunState) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status != model.RunStatusRunning
}

func (s *RunState) Snapshot() model.RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.RunSnapshot{
		ID:         s.ID,
		Action:     s.Action,
		Status:     s.Status,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
	}

	return snap
}
