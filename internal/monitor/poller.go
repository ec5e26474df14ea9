// Package monitor keeps registered copy tasks up to date and tears them down
// on request.
package monitor

import (
	"context"
	"drivemirror/internal/copier"
	"drivemirror/internal/feed"
	"drivemirror/internal/gateway"
	"drivemirror/internal/logger"
	"drivemirror/internal/metrics"
	"drivemirror/internal/model"
	"drivemirror/internal/repository"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const origin = "monitor"

var ErrAlreadyRunning = errors.New("poller already running")

// Poller re-runs the recursive copy for every stored task on a fixed
// interval. Each pass starts from a clone of the stored map, so a failed
// pass never alters the persisted baseline; only strictly larger maps are
// written back.
type Poller struct {
	gw    gateway.Gateway
	tasks repository.TaskRepository
	msgs  chan<- model.Message
	clock clockwork.Clock

	intervalCh chan time.Duration

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	polls    int
	lastPoll *time.Time
	lastErr  string
}

func NewPoller(gw gateway.Gateway, tasks repository.TaskRepository, msgs chan<- model.Message, interval time.Duration, clock clockwork.Clock) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Poller{
		gw:         gw,
		tasks:      tasks,
		msgs:       msgs,
		clock:      clock,
		interval:   interval,
		intervalCh: make(chan time.Duration, 1),
	}
}

// Start runs one pass immediately and then one per interval until ctx ends
// or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.interval, p.done)

	logger.Log.Info("monitor started",
		zap.Duration("interval", p.interval))
	return nil
}

// Stop cancels the loop and waits for the pass in flight to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
	logger.Log.Info("monitor stopped")
}

// SetInterval changes the delay between passes. A running loop picks it up
// after its current wait.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()

	select {
	case <-p.intervalCh:
	default:
	}
	p.intervalCh <- d
}

func (p *Poller) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	p.PollOnce(ctx)

	ticker := p.clock.NewTicker(interval)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return

		case d := <-p.intervalCh:
			ticker.Stop()
			ticker = p.clock.NewTicker(d)
			logger.Log.Info("monitor interval changed",
				zap.Duration("interval", d))

		case <-ticker.Chan():
			p.PollOnce(ctx)
		}
	}
}

// PollOnce makes one pass over every stored task and returns how many task
// maps grew. Errors are reported on the message feed and never abort the
// pass for the remaining tasks.
func (p *Poller) PollOnce(ctx context.Context) int {
	start := p.clock.Now()

	tasks, err := p.tasks.GetAll()
	if err != nil {
		logger.Log.Error("failed to load monitor tasks", zap.Error(err))
		feed.Post(ctx, p.msgs, origin, "[Monitor] Failed to load tasks: %v", err)
		p.finish(start, 0, err)
		return 0
	}

	var lastErr error
	grown := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		ok, err := p.pollTask(ctx, task)
		if ok {
			grown++
		}
		if err != nil && ctx.Err() == nil {
			lastErr = err
		}
	}

	p.finish(start, len(tasks), lastErr)
	return grown
}

func (p *Poller) pollTask(ctx context.Context, task model.MonitorTask) (bool, error) {
	src, dst := task.SourceFolderID, task.DestFolderID
	baseline := task.CopiedFiles

	next, copyErr := copier.CopyNewItems(ctx, p.gw, src, dst, baseline.Clone(), "")
	if copyErr != nil && ctx.Err() == nil {
		metrics.RecordPollError()
		logger.Log.Warn("monitor copy failed",
			zap.String("src", src),
			zap.String("dst", dst),
			zap.Error(copyErr))
		feed.Post(ctx, p.msgs, origin, "[Monitor] Copy error: %v", copyErr)
	}

	if len(next) <= len(baseline) {
		return false, copyErr
	}

	updated, err := p.tasks.UpdateCopyMap(src, dst, next, p.clock.Now())
	if err != nil {
		logger.Log.Error("failed to save monitor task",
			zap.String("src", src),
			zap.String("dst", dst),
			zap.Error(err))
		feed.Post(ctx, p.msgs, origin, "[Monitor] Failed to save task %s -> %s: %v", src, dst, err)
		return false, err
	}

	if !updated {
		return false, copyErr
	}

	added := len(next) - len(baseline)
	logger.Log.Info("monitor copied new items",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.Int("new", added))

	if copyErr == nil {
		feed.Post(ctx, p.msgs, origin, "[Monitor] New files/folders copied.")
	} else {
		feed.Post(ctx, p.msgs, origin, "[Monitor] Saved partial progress (%d new objects).", added)
	}
	return true, copyErr
}

func (p *Poller) finish(start time.Time, tasks int, err error) {
	metrics.RecordPoll(tasks, p.clock.Since(start))

	p.mu.Lock()
	defer p.mu.Unlock()

	p.polls++
	now := p.clock.Now()
	p.lastPoll = &now
	if err != nil {
		p.lastErr = err.Error()
	} else {
		p.lastErr = ""
	}
}

func (p *Poller) Snapshot() model.PollerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := model.PollerSnapshot{
		Running:   p.cancel != nil,
		Interval:  p.interval,
		Polls:     p.polls,
		LastError: p.lastErr,
	}
	if p.lastPoll != nil {
		t := *p.lastPoll
		snap.LastPoll = &t
	}
	return snap
}
