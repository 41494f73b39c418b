package ratelimit_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/melange/internal/app/system/ratelimit"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestLimiter_AllowAndReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := ratelimit.New(2, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 0, l.Remaining("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	l.Reset("a")
	assert.Equal(t, 2, l.Remaining("a"))
	assert.True(t, l.Allow("a"))
}

func TestLimiter_WindowExpires(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := ratelimit.New(1, 20*time.Millisecond)
	defer l.Stop()

	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow("k"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ratelimit.ClientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ratelimit.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", ratelimit.ClientIP(r))
}

func TestLoginLimiter_PerAccount(t *testing.T) {
	defer goleak.VerifyNone(t)

	ll := ratelimit.NewLoginLimiter()
	defer ll.Stop()

	r := httptest.NewRequest("POST", "/login", nil)
	for i := 0; i < 5; i++ {
		ok, _ := ll.Check(r, "Ada")
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, reason := ll.Check(r, "ada")
	assert.False(t, ok)
	assert.Contains(t, reason, "this account")

	ll.ResetAccount("ADA")
	ok, _ = ll.Check(r, "ada")
	assert.True(t, ok)
}
