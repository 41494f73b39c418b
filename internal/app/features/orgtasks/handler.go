// internal/app/features/orgtasks/handler.go
package orgtasks

import (
	"errors"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	orgtaskstore "github.com/dalemusser/melange/internal/app/store/orgtasks"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves organization task boards.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog}
}

func userError(err error) error {
	switch {
	case errors.Is(err, orgtaskstore.ErrNotFound):
		return uierrors.NotFound("Task not found.")
	case errors.Is(err, orgtaskstore.ErrBadTransition):
		return uierrors.Conflict("The task is not in a state that allows this.")
	}
	return err
}
