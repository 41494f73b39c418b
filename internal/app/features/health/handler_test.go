package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/melange/internal/app/features/health"
	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"go.uber.org/zap"
)

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tasks := queuestore.New(db)
	if _, err := tasks.Insert(context.Background(), models.Task{Name: "mail_send", URL: "/tasks/mail/send"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	handler := health.NewHandler(db.Client(), tasks, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", contentType, "application/json")
	}

	var response struct {
		Status   string           `json:"status"`
		Database string           `json:"database"`
		Tasks    map[string]int64 `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("status: got %q, want %q", response.Status, "ok")
	}
	if response.Database != "connected" {
		t.Errorf("database: got %q, want %q", response.Database, "connected")
	}
	if response.Tasks[models.TaskPending] != 1 {
		t.Errorf("tasks: got %v, want 1 pending", response.Tasks)
	}
}

func TestServe_DatabaseDisconnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := db.Client()
	handler := health.NewHandler(client, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/health", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var response struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "error" {
		t.Errorf("status: got %q, want %q", response.Status, "error")
	}
}
