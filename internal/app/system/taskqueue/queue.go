// internal/app/system/taskqueue/queue.go
package taskqueue

import (
	"context"
	"time"

	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

// Enqueuer adds tasks to the queue. Features and batch jobs depend on this
// interface so tests can record enqueued tasks without a dispatcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, name, url string, params map[string]string, eta time.Time) error
}

// Queue is the Mongo-backed Enqueuer.
type Queue struct {
	store *queuestore.Store
	log   *zap.Logger
}

// NewQueue creates a Queue.
func NewQueue(store *queuestore.Store, logger *zap.Logger) *Queue {
	return &Queue{store: store, log: logger}
}

// Enqueue inserts a pending task. A zero eta runs it on the next poll.
func (q *Queue) Enqueue(ctx context.Context, name, url string, params map[string]string, eta time.Time) error {
	t, err := q.store.Insert(ctx, models.Task{Name: name, URL: url, Params: params, ETA: eta})
	if err != nil {
		return err
	}
	q.log.Debug("task enqueued",
		zap.String("task", name),
		zap.String("task_id", t.ID.Hex()),
		zap.Time("eta", t.ETA))
	return nil
}

// Recorder is an in-memory Enqueuer for tests.
type Recorder struct {
	Tasks []models.Task
}

// Enqueue records the task.
func (r *Recorder) Enqueue(_ context.Context, name, url string, params map[string]string, eta time.Time) error {
	r.Tasks = append(r.Tasks, models.Task{Name: name, URL: url, Params: params, ETA: eta})
	return nil
}

// Named returns recorded tasks with the given name.
func (r *Recorder) Named(name string) []models.Task {
	var out []models.Task
	for _, t := range r.Tasks {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}
