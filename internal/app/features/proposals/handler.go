// internal/app/features/proposals/handler.go
package proposals

import (
	"errors"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves student proposals and the admin triggers for the
// duplicate and acceptance jobs.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Tasks    taskqueue.Enqueuer
}

func NewHandler(
	db *mongo.Database,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	tasks taskqueue.Enqueuer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Tasks:    tasks,
	}
}

func userError(err error) error {
	if errors.Is(err, proposalstore.ErrNotFound) {
		return uierrors.NotFound("Proposal not found.")
	}
	return err
}
