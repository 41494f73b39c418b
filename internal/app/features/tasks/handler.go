// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/system/jobs"
	"github.com/dalemusser/melange/internal/app/system/limits"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the /tasks endpoints the dispatcher posts to.
type Handler struct {
	Jobs   *jobs.Runner
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(runner *jobs.Runner, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Jobs:   runner,
		Log:    logger,
		ErrLog: errLog,
	}
}

// run parses the form, runs one page of a job, and answers 200 so the
// dispatcher marks the task done. Tasks naming a missing program or
// organization are dropped with 200; any other failure is a 500 and is
// retried.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, job string, fn func(ctx context.Context, form func(string) string) (jobs.Step, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxTaskParams)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.HandleError(w, r, job, uierrors.BadRequest("Malformed task parameters."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	step, err := fn(ctx, r.PostForm.Get)
	switch {
	case errors.Is(err, jobs.ErrUnknownProgram), errors.Is(err, jobs.ErrUnknownOrganization), errors.Is(err, jobs.ErrNoMailer):
		h.Log.Warn("task dropped", zap.String("job", job), zap.Error(err))
		uierrors.WriteJSON(w, http.StatusOK, map[string]any{"dropped": true, "reason": err.Error()})
	case err != nil:
		h.ErrLog.LogServerError(w, r, job, err, "Task failed.")
	default:
		h.Log.Debug("task page finished", zap.String("job", job),
			zap.Int("processed", step.Processed), zap.Bool("done", step.Done))
		uierrors.WriteJSON(w, http.StatusOK, step)
	}
}
