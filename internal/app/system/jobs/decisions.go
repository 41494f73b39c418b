// internal/app/system/jobs/decisions.go
package jobs

import (
	"context"

	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.uber.org/zap"
)

// ApplyDecisions publishes pre-accepted and pre-rejected organizations of
// one page, mails their admins, and queues a participant refresh for each
// admin.
func (r *Runner) ApplyDecisions(ctx context.Context, programKey, after string) (Step, error) {
	prog, err := r.program(ctx, programKey)
	if err != nil {
		return Step{}, err
	}

	orgs, err := organizationstore.New(r.db).BatchAfter(ctx, prog.ID,
		[]string{models.OrgStatusPreAccepted, models.OrgStatusPreRejected}, cursor(after), r.cfg.batch())
	if err != nil {
		return Step{}, err
	}

	store := organizationstore.New(r.db)
	profiles := profilestore.New(r.db)
	var step Step
	accepted, rejected := 0, 0
	for _, org := range orgs {
		status, changed, err := store.PublishDecision(ctx, org.ID)
		if err != nil {
			return step, err
		}
		step.Next = org.ID
		step.Processed++
		if !changed {
			continue
		}

		ok := status == models.OrgStatusAccepted
		tmpl := prog.Messages.RejectedOrgs
		if ok {
			accepted++
			tmpl = prog.Messages.AcceptedOrgs
		} else {
			rejected++
		}

		admins, err := profiles.ListOrgAdmins(ctx, org.ID)
		if err != nil {
			return step, err
		}
		for _, a := range admins {
			e := mailer.BuildOrgDecision(ok, tmpl, mailer.MessageData{
				Name:         a.PublicName,
				Program:      prog.Name,
				Organization: org.Name,
			})
			r.mailTo(ctx, e, a.Email)
			if err := taskqueue.EnqueueRefreshUser(ctx, r.tasks, prog.ID, a.UserID); err != nil {
				r.log.Warn("queue participant refresh failed", zap.String("user_id", a.UserID.Hex()), zap.Error(err))
			}
		}
	}
	r.audit.OrgDecisionsPublished(ctx, prog.ID, accepted, rejected)

	if len(orgs) < r.cfg.batch() {
		step.Done = true
		r.log.Info("organization decisions applied", zap.String("program", prog.Slug))
		return step, nil
	}
	return step, r.continueWith(ctx, taskqueue.ApplyDecisions, map[string]string{"program_key": prog.ID.Hex()}, step.Next)
}
