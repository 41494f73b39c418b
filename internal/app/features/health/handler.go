package health

import (
	"context"
	"encoding/json"
	"net/http"

	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Tasks  *queuestore.Store
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. tasks may be nil.
func NewHandler(client *mongo.Client, tasks *queuestore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Tasks:  tasks,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string           `json:"status"`
	Database string           `json:"database"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
	Tasks    map[string]int64 `json:"tasks,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "tasks":{"pending":3,"failed":0} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	// Queue depth is informational only.
	if h.Tasks != nil {
		if counts, err := h.Tasks.CountByStatus(ctx); err == nil {
			resp.Tasks = counts
		} else {
			h.Log.Warn("health-check: task counts failed", zap.Error(err))
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
