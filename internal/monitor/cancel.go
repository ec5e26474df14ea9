package monitor

import (
	"context"
	"drivemirror/internal/feed"
	"drivemirror/internal/gateway"
	"drivemirror/internal/logger"
	"drivemirror/internal/metrics"
	"drivemirror/internal/model"
	"drivemirror/internal/repository"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const cancelOrigin = "cancel"

type CancelSummary struct {
	Tasks   int `json:"tasks"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// CancelAll deletes every object referenced by every task's copy map and
// then clears the task store, whatever the deletions returned. Ids shorter
// than minIDLen are never sent to the gateway.
func CancelAll(ctx context.Context, gw gateway.Gateway, tasks repository.TaskRepository, msgs chan<- model.Message, minIDLen int) (CancelSummary, error) {
	var sum CancelSummary

	feed.Post(ctx, msgs, cancelOrigin, "Starting cancellation of all operations...")

	all, err := tasks.GetAll()
	if err != nil {
		return sum, fmt.Errorf("failed to load monitor tasks: %w", err)
	}

	if len(all) == 0 {
		feed.Post(ctx, msgs, cancelOrigin, "No monitor tasks to cancel.")
		return sum, nil
	}
	sum.Tasks = len(all)

	for _, task := range all {
		feed.Post(ctx, msgs, cancelOrigin, "Cancelling monitor task: Source: %s -> Destination: %s", task.SourceFolderID, task.DestFolderID)

		for _, path := range task.CopiedFiles.PathsDeepestFirst() {
			id := strings.TrimSpace(task.CopiedFiles[path].ID)

			if len(id) < minIDLen {
				sum.Skipped++
				metrics.RecordDeletion(metrics.DeletionSkipped)
				logger.Log.Warn("skipping object with invalid id",
					zap.String("path", path),
					zap.String("id", id))
				feed.Post(ctx, msgs, cancelOrigin, "Skipping deletion of object '%s': invalid ID '%s'", path, id)
				continue
			}

			if err := gw.Delete(ctx, id); err != nil {
				sum.Failed++
				metrics.RecordDeletion(metrics.DeletionFailed)
				logger.Log.Warn("failed to delete object",
					zap.String("path", path),
					zap.String("id", id),
					zap.Error(err))
				feed.Post(ctx, msgs, cancelOrigin, "Error deleting object '%s': %v", path, err)
				continue
			}

			sum.Deleted++
			metrics.RecordDeletion(metrics.DeletionOK)
			feed.Post(ctx, msgs, cancelOrigin, "Deleted object '%s' (ID: %s)", path, id)
		}
	}

	if err := tasks.Clear(); err != nil {
		return sum, fmt.Errorf("failed to clear monitor tasks: %w", err)
	}

	logger.Log.Info("monitor tasks cancelled",
		zap.Int("tasks", sum.Tasks),
		zap.Int("deleted", sum.Deleted),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	feed.Post(ctx, msgs, cancelOrigin, "All monitor tasks cancelled; all copied objects deleted.")
	return sum, nil
}
