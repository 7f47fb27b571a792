package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/protocol"
)

// Worker is C8's background extraction queue drain loop: a fixed-interval
// ticker claims pending tasks, runs each through the Service, and reports
// the memory_extraction_* lifecycle events. Grounded on voice/session.go's
// monitorSessions/cleanupSessions ticker idiom, generalized from a 10s
// session sweep to a configurable extraction poll.
type Worker struct {
	service  *Service
	tasks    taskClaimer
	interval time.Duration
	batch    int
	outbound ports.OutboundCallback
}

// taskClaimer is the narrow slice of ports.ExtractionTaskRepository Worker
// needs; declared locally so a test double can stand in for it without
// implementing the full repository surface.
type taskClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]models.ExtractionTask, error)
	Update(ctx context.Context, t *models.ExtractionTask) error
}

func NewWorker(service *Service, tasks taskClaimer, interval time.Duration, batch int, outbound ports.OutboundCallback) *Worker {
	if batch <= 0 {
		batch = 10
	}
	return &Worker{service: service, tasks: tasks, interval: interval, batch: batch, outbound: outbound}
}

// Run polls until ctx is cancelled. It never returns an error: task failures
// are recorded on the task row and reported via outbound events.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) {
	tasks, err := w.tasks.ClaimPending(ctx, w.batch)
	if err != nil {
		slog.Error("memory worker: claim pending tasks failed", "error", err)
		return
	}
	for i := range tasks {
		w.process(ctx, &tasks[i])
	}
}

func (w *Worker) process(ctx context.Context, task *models.ExtractionTask) {
	w.emit(ctx, protocol.EventMemoryExtractionProcessing, task, "")

	var err error
	if task.IsManualFactCreation() {
		_, err = w.service.CreateManualFact(ctx, task.UserID, task.AgentID, task.ManualFactPayload())
	} else {
		err = w.service.ExtractFactsFromTurn(ctx, task.UserID, task.AgentID, task.UserMessage, task.AIResponse)
	}

	if err != nil {
		permanent := false
		task.MarkFailed(err.Error(), permanent)
		if uErr := w.tasks.Update(ctx, task); uErr != nil {
			slog.Error("memory worker: failed to persist task failure", "task_id", task.ID, "error", uErr)
		}
		w.emit(ctx, protocol.EventMemoryExtractionFailed, task, err.Error())
		return
	}

	task.MarkCompleted()
	if uErr := w.tasks.Update(ctx, task); uErr != nil {
		slog.Error("memory worker: failed to persist task completion", "task_id", task.ID, "error", uErr)
	}
	w.emit(ctx, protocol.EventMemoryExtractionCompleted, task, "")
}

func (w *Worker) emit(ctx context.Context, event protocol.EventName, task *models.ExtractionTask, errMsg string) {
	if w.outbound == nil {
		return
	}
	payload := protocol.MemoryExtractionStatus{TaskID: task.ID, Error: errMsg}
	w.outbound(ctx, "", *protocol.NewEnvelope(event, payload))
}
