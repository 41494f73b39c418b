// internal/app/system/taskqueue/dispatcher.go
package taskqueue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"github.com/dalemusser/melange/internal/app/system/metrics"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

// MaxBackoff caps the retry delay.
const MaxBackoff = 10 * time.Minute

// Backoff returns the delay before retry number attempts: 2^attempts
// seconds, capped at MaxBackoff.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= 10 {
		return MaxBackoff
	}
	d := time.Duration(1<<uint(attempts)) * time.Second
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// DispatcherConfig holds dispatcher settings.
type DispatcherConfig struct {
	BaseURL      string
	PollInterval time.Duration
	MaxAttempts  int
	Lease        time.Duration
	// BatchSize caps deliveries per poll.
	BatchSize int
}

// Dispatcher is a background worker that leases due tasks and POSTs their
// params to BaseURL+task.URL with a signed bearer token.
type Dispatcher struct {
	store   *queuestore.Store
	signer  *Signer
	client  *http.Client
	metrics *metrics.Metrics
	log     *zap.Logger
	cfg     DispatcherConfig
	now     func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(store *queuestore.Store, signer *Signer, m *metrics.Metrics, logger *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &Dispatcher{
		store:   store,
		signer:  signer,
		client:  &http.Client{Timeout: cfg.Lease},
		metrics: m,
		log:     logger,
		cfg:     cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the poll loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.log.Info("task dispatcher started",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("max_attempts", d.cfg.MaxAttempts),
		zap.String("base_url", d.cfg.BaseURL))
}

// Stop signals the loop to stop and waits for the in-flight poll.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	d.log.Info("task dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-d.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
				d.log.Error("task poll failed", zap.Error(err))
			}
		}
	}
}

// RunOnce leases and delivers up to BatchSize due tasks and returns how
// many were delivered (successfully or not).
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	n := 0
	defer func() { d.metrics.TasksLeased(n) }()

	for n < d.cfg.BatchSize {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		t, err := d.store.LeaseNext(ctx, d.now().UTC(), d.cfg.Lease)
		if err != nil {
			return n, err
		}
		if t == nil {
			return n, nil
		}
		n++
		d.deliver(ctx, *t)
	}
	return n, nil
}

func (d *Dispatcher) deliver(ctx context.Context, t models.Task) {
	start := time.Now()
	attempts := t.Attempts + 1
	err := d.post(ctx, t)

	switch {
	case err == nil:
		d.metrics.TaskRun(t.Name, "done", time.Since(start))
		if e := d.store.MarkDone(ctx, t.ID, attempts); e != nil {
			d.log.Error("mark task done failed", zap.String("task_id", t.ID.Hex()), zap.Error(e))
		}
		d.log.Debug("task done", zap.String("task", t.Name), zap.String("task_id", t.ID.Hex()))

	case attempts >= d.cfg.MaxAttempts:
		d.metrics.TaskRun(t.Name, "failed", time.Since(start))
		if e := d.store.MarkFailed(ctx, t.ID, attempts, err.Error()); e != nil {
			d.log.Error("mark task failed failed", zap.String("task_id", t.ID.Hex()), zap.Error(e))
		}
		d.log.Error("task failed permanently",
			zap.String("task", t.Name),
			zap.String("task_id", t.ID.Hex()),
			zap.Int("attempts", attempts),
			zap.Error(err))

	default:
		d.metrics.TaskRun(t.Name, "retry", time.Since(start))
		eta := d.now().UTC().Add(Backoff(attempts))
		if e := d.store.Retry(ctx, t.ID, attempts, eta, err.Error()); e != nil {
			d.log.Error("reschedule task failed", zap.String("task_id", t.ID.Hex()), zap.Error(e))
		}
		d.log.Warn("task will retry",
			zap.String("task", t.Name),
			zap.String("task_id", t.ID.Hex()),
			zap.Int("attempts", attempts),
			zap.Time("eta", eta),
			zap.Error(err))
	}
}

func (d *Dispatcher) post(ctx context.Context, t models.Task) error {
	tok, err := d.signer.Sign(t.Name, t.ID.Hex())
	if err != nil {
		return err
	}
	form := url.Values{}
	for k, v := range t.Params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(d.cfg.BaseURL, "/")+t.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Melange-Task-Name", t.Name)
	req.Header.Set("X-Melange-Task-Attempt", fmt.Sprint(t.Attempts+1))

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
