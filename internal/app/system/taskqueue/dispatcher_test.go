package taskqueue_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"github.com/dalemusser/melange/internal/app/system/metrics"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestDispatcher_DeliversSignedForm(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	signer := taskqueue.NewSigner(secret)
	var mu sync.Mutex
	var gotProgram, gotTaskName string
	srv := httptest.NewServer(signer.RequireTaskToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		gotProgram = r.PostForm.Get("program_key")
		gotTaskName = r.Header.Get("X-Melange-Task-Name")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})))
	defer srv.Close()

	store := queuestore.New(db)
	q := taskqueue.NewQueue(store, zap.NewNop())
	require.NoError(t, q.Enqueue(ctx, "apply_decisions", "/tasks/org_app/apply_decisions",
		map[string]string{"program_key": "gsoc2026"}, time.Time{}))

	d := taskqueue.NewDispatcher(store, signer, metrics.New(), zap.NewNop(), taskqueue.DispatcherConfig{BaseURL: srv.URL})
	n, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mu.Lock()
	assert.Equal(t, "gsoc2026", gotProgram)
	assert.Equal(t, "apply_decisions", gotTaskName)
	mu.Unlock()

	tasks, err := store.ListByName(ctx, "apply_decisions", models.TaskDone)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestDispatcher_RetriesWithBackoffThenFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := queuestore.New(db)
	_, err := store.Insert(ctx, models.Task{Name: "mail_send", URL: "/tasks/mail/send"})
	require.NoError(t, err)

	d := taskqueue.NewDispatcher(store, taskqueue.NewSigner(secret), nil, zap.NewNop(),
		taskqueue.DispatcherConfig{BaseURL: srv.URL, MaxAttempts: 2})

	before := time.Now().UTC()
	_, err = d.RunOnce(ctx)
	require.NoError(t, err)

	pending, err := store.ListByName(ctx, "mail_send", models.TaskPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "HTTP 500")
	assert.True(t, !pending[0].ETA.Before(before.Add(time.Second).Truncate(time.Millisecond)), "eta honours 2^1s backoff")

	// Not due yet.
	n, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Make it due and fail again: MaxAttempts reached.
	require.NoError(t, store.Retry(ctx, pending[0].ID, 1, time.Now().UTC().Add(-time.Second), "HTTP 500"))
	_, err = d.RunOnce(ctx)
	require.NoError(t, err)

	failed, err := store.ListByName(ctx, "mail_send", models.TaskFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Attempts)
}

func TestDispatcher_StartStopDoesNotLeak(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreAnyFunction("go.mongodb.org/mongo-driver/x/mongo/driver/topology.(*pool).background"),
		goleak.IgnoreAnyFunction("go.mongodb.org/mongo-driver/x/mongo/driver/topology.(*pool).maintain"),
		goleak.IgnoreAnyFunction("go.mongodb.org/mongo-driver/x/mongo/driver/topology.(*Server).update"),
		goleak.IgnoreAnyFunction("go.mongodb.org/mongo-driver/x/mongo/driver/topology.(*rttMonitor).start"),
		goleak.IgnoreAnyFunction("go.mongodb.org/mongo-driver/x/mongo/driver/topology.(*Topology).pollSRVRecords"),
	)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := store.Insert(ctx, models.Task{Name: "x", URL: "/x"})
	require.NoError(t, err)

	d := taskqueue.NewDispatcher(store, taskqueue.NewSigner(secret), nil, zap.NewNop(),
		taskqueue.DispatcherConfig{BaseURL: srv.URL, PollInterval: 10 * time.Millisecond})
	d.Start()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	d.Stop()
	srv.CloseClientConnections()
}
