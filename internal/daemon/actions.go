package daemon

import (
	"context"
	"drivemirror/internal/config"
	"drivemirror/internal/copier"
	"drivemirror/internal/driveurl"
	"drivemirror/internal/feed"
	"drivemirror/internal/gateway"
	"drivemirror/internal/logger"
	"drivemirror/internal/model"
	"drivemirror/internal/monitor"
	"drivemirror/internal/report"
	"drivemirror/internal/repository"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	originCopy        = "copy"
	originMonitor     = "monitor"
	originPermissions = "permissions"
)

// Actions are the operations a user can trigger. Long-running ones are
// handed to the RunManager and report progress on the message feed.
type Actions struct {
	gw      gateway.Gateway
	tasks   repository.TaskRepository
	changes repository.ChangeLogRepository
	cfg     *config.Config
	msgs    chan<- model.Message
	runs    *RunManager
	clock   clockwork.Clock
}

func NewActions(gw gateway.Gateway, store *repository.Store, cfg *config.Config, msgs chan<- model.Message, runs *RunManager, clock clockwork.Clock) *Actions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Actions{
		gw:      gw,
		tasks:   store.Tasks,
		changes: store.Changes,
		cfg:     cfg,
		msgs:    msgs,
		runs:    runs,
		clock:   clock,
	}
}

func (a *Actions) resolvePair(srcURL, dstURL string) (string, string, error) {
	src, err := driveurl.ExtractFolderID(srcURL)
	if err != nil {
		return "", "", badRequest("could not extract source folder ID")
	}

	dst, err := driveurl.ResolveDest(dstURL, a.cfg.RootFolderID)
	if err != nil {
		return "", "", badRequest("could not extract destination folder ID")
	}

	return src, dst, nil
}

func (a *Actions) post(ctx context.Context, origin, format string, args ...any) {
	feed.Post(ctx, a.msgs, origin, format, args...)
}

// recordChange appends to the change log. Failures are logged only.
func (a *Actions) recordChange(rec model.ChangeRecord) {
	rec.Timestamp = a.clock.Now()
	if err := a.changes.Append(rec); err != nil {
		logger.Log.Warn("failed to append change record",
			zap.String("operation", string(rec.Operation)),
			zap.Error(err))
	}
}

func (a *Actions) addTask(src, dst string, copied model.CopyMap) (bool, error) {
	now := a.clock.Now()
	return a.tasks.Add(model.MonitorTask{
		SourceFolderID: src,
		DestFolderID:   dst,
		CopiedFiles:    copied,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// Copy mirrors the source folder into the destination in the background
// and registers a monitor task for the pair unless one exists.
func (a *Actions) Copy(srcURL, dstURL string) (string, error) {
	src, dst, err := a.resolvePair(srcURL, dstURL)
	if err != nil {
		return "", err
	}

	return a.runs.Start("copy", func(ctx context.Context, log *zap.Logger) error {
		return a.copy(ctx, log, src, dst)
	}), nil
}

func (a *Actions) copy(ctx context.Context, log *zap.Logger, src, dst string) error {
	a.post(ctx, originCopy, "Starting recursive copy (Copy)...")

	copied, copyErr := copier.CopyNewItems(ctx, a.gw, src, dst, model.CopyMap{}, "")
	if copyErr != nil {
		a.post(ctx, originCopy, "Copy error: %v", copyErr)
		if len(copied) == 0 {
			return copyErr
		}
	} else {
		a.post(ctx, originCopy, "Copy finished. Total objects copied: %d", len(copied))
	}

	added, err := a.addTask(src, dst, copied)
	switch {
	case err != nil:
		log.Error("failed to save monitor task", zap.Error(err))
		a.post(ctx, originCopy, "Failed to save monitor task: %v", err)
	case added:
		a.post(ctx, originCopy, "Monitor task created.")
	}

	comment := "Recursive copy via Copy"
	if copyErr != nil {
		comment += " (incomplete)"
	}
	a.recordChange(model.ChangeRecord{
		Operation:      model.OpCopy,
		FileName:       "(multiple objects)",
		FileID:         "(multiple)",
		SourceFolderID: src,
		DestFolderID:   dst,
		Comment:        comment,
	})

	return copyErr
}

// AddMonitor runs an initial copy in the background and then stores the
// task.
func (a *Actions) AddMonitor(srcURL, dstURL string) (string, error) {
	src, dst, err := a.resolvePair(srcURL, dstURL)
	if err != nil {
		return "", err
	}

	return a.runs.Start("add-monitor", func(ctx context.Context, log *zap.Logger) error {
		return a.addMonitor(ctx, log, src, dst)
	}), nil
}

func (a *Actions) addMonitor(ctx context.Context, log *zap.Logger, src, dst string) error {
	_, exists, err := a.tasks.Get(src, dst)
	if err != nil {
		log.Error("failed to load monitor task", zap.Error(err))
		a.post(ctx, originMonitor, "Failed to load monitor task: %v", err)
		return err
	}
	if exists {
		a.post(ctx, originMonitor, "Monitor task already exists!")
		return nil
	}

	a.post(ctx, originMonitor, "Starting initial copy for AddMonitor...")

	copied, copyErr := copier.CopyNewItems(ctx, a.gw, src, dst, model.CopyMap{}, "")
	if copyErr != nil {
		a.post(ctx, originMonitor, "Initial copy error: %v", copyErr)
		if len(copied) == 0 {
			return copyErr
		}
	} else {
		a.post(ctx, originMonitor, "Initial copy finished. Total objects copied: %d", len(copied))
	}

	added, err := a.addTask(src, dst, copied)
	if err != nil {
		log.Error("failed to save monitor task", zap.Error(err))
		a.post(ctx, originMonitor, "Failed to save monitor task: %v", err)
		return err
	}

	if added {
		a.post(ctx, originMonitor, "New monitor task added:\nSource: %s\nDestination: %s", src, dst)
		a.recordChange(model.ChangeRecord{
			Operation:      model.OpCopy,
			FileName:       "(multiple objects)",
			FileID:         "(multiple)",
			SourceFolderID: src,
			DestFolderID:   dst,
			Comment:        "Initial copy via AddMonitor",
		})
	} else {
		// another add for the same pair won the race
		a.post(ctx, originMonitor, "Monitor task already exists!")
	}

	return copyErr
}

// RemoveMonitor forgets the task. Objects it copied stay where they are.
func (a *Actions) RemoveMonitor(ctx context.Context, srcURL, dstURL string) (bool, error) {
	src, dst, err := a.resolvePair(srcURL, dstURL)
	if err != nil {
		return false, err
	}

	removed, err := a.tasks.Remove(src, dst)
	if err != nil {
		return false, fmt.Errorf("failed to remove monitor task: %w", err)
	}

	if removed {
		a.post(ctx, originMonitor, "Monitor task removed:\nSource: %s\nDestination: %s", src, dst)
	} else {
		a.post(ctx, originMonitor, "No monitor task found with the given paths.")
	}

	return removed, nil
}

// CancelAll deletes everything the monitor tasks copied and drops the tasks.
func (a *Actions) CancelAll() string {
	return a.runs.Start("cancel", func(ctx context.Context, log *zap.Logger) error {
		sum, err := monitor.CancelAll(ctx, a.gw, a.tasks, a.msgs, a.cfg.MinObjectIDLength)
		if err != nil {
			return err
		}

		if sum.Tasks > 0 {
			a.recordChange(model.ChangeRecord{
				Operation: model.OpCancel,
				FileName:  "(all monitor tasks)",
				FileID:    "(multiple)",
				Comment: fmt.Sprintf("Cancelled %d tasks: %d deleted, %d skipped, %d failed",
					sum.Tasks, sum.Deleted, sum.Skipped, sum.Failed),
			})
		}
		return nil
	})
}

// SetPermission grants email the role on the object behind objURL and
// returns the new permission id.
func (a *Actions) SetPermission(ctx context.Context, objURL, email, role string) (string, error) {
	id, err := driveurl.ExtractAnyID(objURL)
	if err != nil {
		return "", badRequest("could not extract file/folder ID")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return "", badRequest("email required")
	}

	r, err := model.ParseRole(role)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	permID, err := a.gw.CreatePermission(ctx, id, email, r)
	if err != nil {
		a.post(ctx, originPermissions, "Error setting permissions: %v", err)
		return "", driveError(err)
	}

	a.post(ctx, originPermissions, "Permissions set successfully. Permission ID: %s", permID)
	a.recordChange(model.ChangeRecord{
		Operation: model.OpSetPermissions,
		FileName:  "(unknown)",
		FileID:    id,
		Comment:   fmt.Sprintf("Permissions %s for %s", r, email),
	})

	return permID, nil
}

// Inspect renders the parent chain and children of the object behind objURL.
func (a *Actions) Inspect(ctx context.Context, objURL string) (string, error) {
	id, err := driveurl.ExtractAnyID(objURL)
	if err != nil {
		return "", badRequest("could not extract file/folder ID")
	}

	out, err := report.Hierarchy(ctx, a.gw, id)
	if err != nil {
		return "", driveError(err)
	}

	return out, nil
}

func (a *Actions) Report() (string, error) {
	records, err := a.changes.GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to load change log: %w", err)
	}

	return report.Changes(records, a.cfg.RootFolderID), nil
}

func (a *Actions) Tasks() ([]model.TaskSnapshot, error) {
	tasks, err := a.tasks.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load monitor tasks: %w", err)
	}

	snaps := make([]model.TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		snaps = append(snaps, t.Snapshot())
	}

	return snaps, nil
}
