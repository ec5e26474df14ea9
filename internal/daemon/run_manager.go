package daemon

import (
	"context"
	"drivemirror/internal/logger"
	"drivemirror/internal/model"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const finishedRunsKept = 100

type RunFunc func(ctx context.Context, log *zap.Logger) error

// RunManager starts background actions and remembers their outcome. Runs
// cannot be cancelled one by one; they all share the context given to
// NewRunManager.
type RunManager struct {
	ctx   context.Context
	clock clockwork.Clock

	mu    sync.RWMutex
	runs  map[string]*RunState
	order []string

	wg sync.WaitGroup
}

func NewRunManager(ctx context.Context, clock clockwork.Clock) *RunManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RunManager{
		ctx:   ctx,
		clock: clock,
		runs:  make(map[string]*RunState),
	}
}

// Start runs fn in its own goroutine and returns the run id.
func (m *RunManager) Start(action string, fn RunFunc) string {
	id := uuid.NewString()
	state := NewRunState(id, action, m.clock.Now())

	m.mu.Lock()
	m.runs[id] = state
	m.order = append(m.order, id)
	m.prune()
	m.mu.Unlock()

	log := logger.Log.With(
		zap.String("run_id", id),
		zap.String("action", action))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		log.Info("action started")
		err := fn(m.ctx, log)
		state.Finish(err, m.clock.Now())

		if err != nil {
			log.Warn("action failed", zap.Error(err))
			return
		}
		log.Info("action finished")
	}()

	return id
}

// prune drops the oldest finished runs beyond finishedRunsKept. Callers hold mu.
func (m *RunManager) prune() {
	finished := 0
	for _, id := range m.order {
		if m.runs[id].Done() {
			finished++
		}
	}

	kept := m.order[:0]
	for _, id := range m.order {
		if finished > finishedRunsKept && m.runs[id].Done() {
			delete(m.runs, id)
			finished--
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

func (m *RunManager) Get(id string) (model.RunSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok {
		return model.RunSnapshot{}, false
	}
	return state.Snapshot(), true
}

// Snapshots returns all remembered runs, oldest first.
func (m *RunManager) Snapshots() []model.RunSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]model.RunSnapshot, 0, len(m.order))
	for _, id := range m.order {
		snaps = append(snaps, m.runs[id].Snapshot())
	}

	return snaps
}

// Wait blocks until every started run has returned.
func (m *RunManager) Wait() {
	m.wg.Wait()
}
