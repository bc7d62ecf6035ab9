package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhall/backend/pkg/logger"
)

// Job is one fire-and-forget indexing task for an uploaded document.
// There is no return path to the uploader: job errors are logged and
// never re-surfaced.
type Job struct {
	ID         string
	DocumentID int64
	UserID     int64
}

// Worker drains the job queue one document at a time, which keeps the
// external completion service load sequential.
type Worker struct {
	jobs chan Job
	orch *Orchestrator
}

func NewWorker(orch *Orchestrator, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		jobs: make(chan Job, queueSize),
		orch: orch,
	}
}

// Enqueue never blocks the caller: when the buffer is full the job
// runs on its own goroutine instead.
func (w *Worker) Enqueue(documentID, userID int64) Job {
	job := Job{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		UserID:     userID,
	}

	select {
	case w.jobs <- job:
	default:
		logger.Warn("Pipeline queue full, running job inline",
			zap.String("job_id", job.ID),
			zap.Int64("document_id", job.DocumentID),
		)
		go w.run(context.Background(), job)
	}

	return job
}

// Start consumes jobs until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Pipeline worker stopping")
				return
			case job := <-w.jobs:
				w.run(ctx, job)
			}
		}
	}()
}

func (w *Worker) run(ctx context.Context, job Job) {
	logger.Info("Pipeline job started",
		zap.String("job_id", job.ID),
		zap.Int64("document_id", job.DocumentID),
		zap.Int64("user_id", job.UserID),
	)

	if err := w.orch.RunIndexing(ctx, job.DocumentID, job.UserID); err != nil {
		// The uploader already got an acknowledgement; log and move on.
		logger.Error("Pipeline job failed",
			zap.String("job_id", job.ID),
			zap.Int64("document_id", job.DocumentID),
			zap.Error(err),
		)
		return
	}

	logger.Info("Pipeline job finished",
		zap.String("job_id", job.ID),
		zap.Int64("document_id", job.DocumentID),
	)
}
