// internal/app/bootstrap/services.go
package bootstrap

import (
	"sync"
	"time"

	anonconnectionstore "github.com/dalemusser/melange/internal/app/store/anonconnections"
	"github.com/dalemusser/melange/internal/app/store/audit"
	"github.com/dalemusser/melange/internal/app/store/oauthstate"
	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/jobs"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/metrics"
	"github.com/dalemusser/melange/internal/app/system/negotiation"
	"github.com/dalemusser/melange/internal/app/system/participants"
	"github.com/dalemusser/melange/internal/app/system/ratelimit"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const (
	participantConcurrency = 8
	finishedTaskRetention  = 7 * 24 * time.Hour
)

// services holds the long-lived collaborators shared by handlers and the
// background workers. Built in Startup, consumed by BuildHandler, stopped
// in Shutdown.
type services struct {
	Metrics      *metrics.Metrics
	Queue        *taskqueue.Queue
	QueueStore   *queuestore.Store
	Signer       *taskqueue.Signer
	Audit        *auditlog.Logger
	AnonStore    *anonconnectionstore.Store
	OAuthStates  *oauthstate.Store
	Negotiation  *negotiation.Service
	Participants *participants.Service
	Jobs         *jobs.Runner
	LoginLimiter *ratelimit.LoginLimiter

	dispatcher *taskqueue.Dispatcher
	scheduler  *tasks.Scheduler
}

var (
	svcMu sync.Mutex
	svc   *services
)

func newServices(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) *services {
	db := deps.MongoDatabase
	m := metrics.New()

	qs := queuestore.New(db)
	queue := taskqueue.NewQueue(qs, logger)
	signer := taskqueue.NewSigner(appCfg.TaskSecret)

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	anon := anonconnectionstore.New(db, appCfg.AnonymousConnectionTTL)
	parts := participants.New(db, logger, participantConcurrency)
	neg := negotiation.New(db, logger, queue, auditLog, m, anon, negotiation.Config{BaseURL: appCfg.BaseURL})

	var mail mailer.Sender
	if appCfg.MailEnabled() {
		mail = mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger)
	} else {
		logger.Warn("mail_smtp_host not set; outbound mail is dropped")
	}

	runner := jobs.New(db, queue, auditLog, parts, mail, jobs.Config{
		DuplicatesRepeat: appCfg.DuplicatesRepeat,
	}, logger)

	states := oauthstate.New(db)

	return &services{
		Metrics:      m,
		Queue:        queue,
		QueueStore:   qs,
		Signer:       signer,
		Audit:        auditLog,
		AnonStore:    anon,
		OAuthStates:  states,
		Negotiation:  neg,
		Participants: parts,
		Jobs:         runner,
		LoginLimiter: ratelimit.NewLoginLimiter(),

		dispatcher: taskqueue.NewDispatcher(qs, signer, m, logger, taskqueue.DispatcherConfig{
			BaseURL:      appCfg.BaseURL,
			PollInterval: appCfg.TaskPollInterval,
			MaxAttempts:  appCfg.TaskMaxAttempts,
			Lease:        appCfg.TaskLease,
		}),
		scheduler: tasks.NewScheduler(logger, m, 0,
			tasks.OAuthStateCleanupJob(states, logger),
			tasks.AnonymousConnectionCleanupJob(anon, logger),
			tasks.TaskPurgeJob(qs, logger, finishedTaskRetention),
		),
	}
}

func (s *services) start() {
	s.dispatcher.Start()
	s.scheduler.Start()
}

func (s *services) stop() {
	s.dispatcher.Stop()
	s.scheduler.Stop()
	s.LoginLimiter.Stop()
}

func currentServices() *services {
	svcMu.Lock()
	defer svcMu.Unlock()
	return svc
}

func setServices(s *services) {
	svcMu.Lock()
	defer svcMu.Unlock()
	svc = s
}
