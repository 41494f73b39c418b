package login_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/login"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/dalemusser/melange/internal/app/system/ratelimit"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*login.Handler, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	errLog := uierrors.NewErrorLogger(logger)

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	limiter := ratelimit.NewLoginLimiter()
	t.Cleanup(limiter.Stop)

	handler := login.NewHandler(db, sessionMgr, errLog, nil, limiter, logger)
	return handler, testutil.NewFixtures(t, db), db
}

func createPasswordUser(t *testing.T, fx *testutil.Fixtures, db *mongo.Database, loginID, password string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Pat Doe", loginID, models.UserRoleUser)
	if err := userstore.New(db).SetPassword(ctx, u.ID, password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	return u
}

func hasCookie(rec *testutil.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return true
		}
	}
	return false
}

func TestHandleLogin_Success(t *testing.T) {
	h, fx, db := newTestHandler(t)
	u := createPasswordUser(t, fx, db, "pat@example.com", "correct-horse")

	req := testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{
		"login_id": "PAT@example.com",
		"password": "correct-horse",
	})
	rec := testutil.NewRecorder()
	h.HandleLogin(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got login.UserView
	rec.DecodeJSON(t, &got)
	if got.ID != u.ID.Hex() {
		t.Errorf("id: got %q, want %q", got.ID, u.ID.Hex())
	}
	if !hasCookie(rec, "test-session") {
		t.Error("expected session cookie to be set")
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	h, fx, db := newTestHandler(t)
	createPasswordUser(t, fx, db, "pat@example.com", "correct-horse")

	req := testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{
		"login_id": "pat@example.com",
		"password": "wrong",
	})
	rec := testutil.NewRecorder()
	h.HandleLogin(rec, req)

	rec.AssertStatus(t, http.StatusUnauthorized)
	if hasCookie(rec, "test-session") {
		t.Error("session cookie must not be set on failure")
	}
}

func TestHandleLogin_UnknownUser(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{
		"login_id": "nobody@example.com",
		"password": "whatever",
	})
	rec := testutil.NewRecorder()
	h.HandleLogin(rec, req)

	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestHandleLogin_DisabledUser(t *testing.T) {
	h, fx, db := newTestHandler(t)
	u := createPasswordUser(t, fx, db, "pat@example.com", "correct-horse")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := userstore.New(db).SetStatus(ctx, u.ID, models.UserStatusDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	req := testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{
		"login_id": "pat@example.com",
		"password": "correct-horse",
	})
	rec := testutil.NewRecorder()
	h.HandleLogin(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleLogin_MissingFields(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{"login_id": "pat@example.com"})
	rec := testutil.NewRecorder()
	h.HandleLogin(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleLogin_RateLimited(t *testing.T) {
	h, fx, db := newTestHandler(t)
	createPasswordUser(t, fx, db, "pat@example.com", "correct-horse")

	var last int
	for i := 0; i < 20; i++ {
		req := testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{
			"login_id": "pat@example.com",
			"password": "wrong",
		})
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, req)
		last = rec.Code
		if last == http.StatusTooManyRequests {
			break
		}
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected repeated failures to be rate limited, last status %d", last)
	}
}

func TestHandleChangePassword(t *testing.T) {
	h, fx, db := newTestHandler(t)
	u := createPasswordUser(t, fx, db, "pat@example.com", "correct-horse")

	req := testutil.NewJSONRequest(http.MethodPost, "/login/password", map[string]string{
		"current_password": "correct-horse",
		"new_password":     "battery-staple",
	})
	req = testutil.WithUser(req, testutil.AsTestUser(u))
	rec := testutil.NewRecorder()
	h.HandleChangePassword(rec, req)
	rec.AssertStatus(t, http.StatusNoContent)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	got, err := userstore.New(db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !userstore.CheckPassword(got, "battery-staple") {
		t.Error("new password should match")
	}
}

func TestHandleChangePassword_WrongCurrent(t *testing.T) {
	h, fx, db := newTestHandler(t)
	u := createPasswordUser(t, fx, db, "pat@example.com", "correct-horse")

	req := testutil.NewJSONRequest(http.MethodPost, "/login/password", map[string]string{
		"current_password": "nope",
		"new_password":     "battery-staple",
	})
	req = testutil.WithUser(req, testutil.AsTestUser(u))
	rec := testutil.NewRecorder()
	h.HandleChangePassword(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeMe_RequiresSignIn(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewRequest(http.MethodGet, "/me"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
