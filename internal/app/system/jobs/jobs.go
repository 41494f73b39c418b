// Package jobs holds the batch work behind the /tasks endpoints. Every job
// processes one page, queues its own continuation with the cursor of the
// last document it handled, and reports what it did.
package jobs

import (
	"context"
	"errors"
	"time"

	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/participants"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrUnknownProgram is returned when a job names a program that does not
// exist. The task is dropped rather than retried.
var ErrUnknownProgram = errors.New("jobs: unknown program")

// ErrUnknownOrganization is the organization counterpart of
// ErrUnknownProgram.
var ErrUnknownOrganization = errors.New("jobs: unknown organization")

// Config tunes batch sizes and the duplicates recalculation interval.
type Config struct {
	BatchSize        int
	DuplicatesRepeat time.Duration
}

func (c Config) batch() int {
	if c.BatchSize <= 0 {
		return 25
	}
	return c.BatchSize
}

func (c Config) repeat() time.Duration {
	if c.DuplicatesRepeat <= 0 {
		return time.Hour
	}
	return c.DuplicatesRepeat
}

// Step is the outcome of one page.
type Step struct {
	Processed int                `json:"processed"`
	Next      primitive.ObjectID `json:"next,omitempty"`
	Done      bool               `json:"done"`
}

// Runner executes batch jobs.
type Runner struct {
	db           *mongo.Database
	log          *zap.Logger
	tasks        taskqueue.Enqueuer
	audit        *auditlog.Logger
	participants *participants.Service
	mail         mailer.Sender
	cfg          Config
}

func New(
	db *mongo.Database,
	tasks taskqueue.Enqueuer,
	audit *auditlog.Logger,
	parts *participants.Service,
	mail mailer.Sender,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		db:           db,
		log:          logger,
		tasks:        tasks,
		audit:        audit,
		participants: parts,
		mail:         mail,
		cfg:          cfg,
	}
}

// program resolves a program key (hex id or slug).
func (r *Runner) program(ctx context.Context, key string) (models.Program, error) {
	p, err := programstore.New(r.db).GetByKey(ctx, key)
	if errors.Is(err, programstore.ErrNotFound) {
		return models.Program{}, ErrUnknownProgram
	}
	return p, err
}

// continueWith queues kind again for the next page.
func (r *Runner) continueWith(ctx context.Context, kind taskqueue.Kind, params map[string]string, next primitive.ObjectID) error {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["org_cursor"] = next.Hex()
	return kind.Enqueue(ctx, r.tasks, out, time.Time{})
}

// mailTo queues e for each address. Failures are logged; the batch carries
// on.
func (r *Runner) mailTo(ctx context.Context, e mailer.Email, to ...string) {
	for _, addr := range to {
		e.To = addr
		if err := taskqueue.EnqueueMail(ctx, r.tasks, e); err != nil {
			r.log.Warn("queue mail failed", zap.String("to", addr), zap.String("subject", e.Subject), zap.Error(err))
		}
	}
}

// cursor parses an optional hex cursor. Anything unparsable starts from
// the beginning.
func cursor(s string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
