package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/melange/internal/app/features/logout"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/dalemusser/melange/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*logout.Handler, *auth.SessionManager) {
	t.Helper()
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	// Audit logger is nil-safe.
	return logout.NewHandler(sessionMgr, nil, logger), sessionMgr
}

func TestHandleLogout_NoContent(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.WithUser(httptest.NewRequest(http.MethodPost, "/logout", nil), testutil.RegularUser())
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestHandleLogout_ClearsSessionCookie(t *testing.T) {
	h, sm := newTestHandler(t)

	// Sign in first so the logout request carries a real cookie.
	login := httptest.NewRecorder()
	if err := sm.SignIn(login, httptest.NewRequest(http.MethodPost, "/login", nil), "64b000000000000000000001"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("expected MaxAge < 0 to delete cookie, got %d", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be cleared")
	}
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	h, sm := newTestHandler(t)
	router := logout.Routes(h, sm)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}
