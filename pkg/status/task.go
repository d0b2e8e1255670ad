package status

import (
	"context"
	"log/slog"
	"time"
)

var StatusInterval = 30 * time.Second

type Task interface {
	Progress() Progress
	Status() string
}

// WatchTask logs the status of task every StatusInterval until ctx is
// cancelled or the task has finished copying. The returned channel is
// closed when the watcher exits.
func WatchTask(ctx context.Context, task Task, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		continuallyDumpStatus(ctx, task, logger)
	}()
	return done
}

func continuallyDumpStatus(ctx context.Context, task Task, logger *slog.Logger) {
	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if task.Progress().CurrentState > CopyRows {
				return
			}
			logger.Info(task.Status())
		}
	}
}
