// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// defaultPageSize is the number of events per audit log page.
const defaultPageSize = 50

// Handler serves the program audit log.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	PageSize int64
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		PageSize: defaultPageSize,
	}
}
