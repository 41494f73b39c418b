package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/melange/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RoleChanged("user")
	m.TaskRun("x", "done", time.Second)
	m.TasksLeased(3)
	m.MailSent(nil)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRoleChangesCounter(t *testing.T) {
	m := metrics.New()
	m.RoleChanged("user")
	m.RoleChanged("user")
	m.RoleChanged("org")

	expected := `
# HELP melange_connection_role_changes_total Connection role transitions that changed state, by side (user|org).
# TYPE melange_connection_role_changes_total counter
melange_connection_role_changes_total{side="org"} 1
melange_connection_role_changes_total{side="user"} 2
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "melange_connection_role_changes_total")
	require.NoError(t, err)
}

func TestMailSentCounter(t *testing.T) {
	m := metrics.New()
	m.MailSent(nil)
	m.MailSent(errors.New("smtp down"))
	m.MailSent(errors.New("smtp down"))

	n, err := testutil.GatherAndCount(m.Registry(), "melange_mail_sent_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/programs/{programID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", m.Handler(zap.NewNop()))

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/programs/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/programs/{programID}"`)
	assert.Contains(t, body, `melange_http_request_duration_seconds_count{code="204",method="GET",route="/programs/{programID}"} 3`)
}
