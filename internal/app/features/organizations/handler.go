// internal/app/features/organizations/handler.go
package organizations

import (
	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/negotiation"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Negotiation *negotiation.Service
	Tasks       taskqueue.Enqueuer
}

// NewHandler constructs a new Organizations handler.
func NewHandler(
	db *mongo.Database,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	neg *negotiation.Service,
	tasks taskqueue.Enqueuer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		AuditLog:    audit,
		Negotiation: neg,
		Tasks:       tasks,
	}
}
