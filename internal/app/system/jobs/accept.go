// internal/app/system/jobs/accept.go
package jobs

import (
	"context"
	"errors"
	"time"

	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	projectstore "github.com/dalemusser/melange/internal/app/store/projects"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/app/system/txn"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AcceptMain hands the next accepted organization to the accept job and
// queues itself for the one after.
func (r *Runner) AcceptMain(ctx context.Context, programKey, after string) (Step, error) {
	prog, err := r.program(ctx, programKey)
	if err != nil {
		return Step{}, err
	}
	orgs, err := organizationstore.New(r.db).BatchAfter(ctx, prog.ID,
		[]string{models.OrgStatusAccepted}, cursor(after), 1)
	if err != nil {
		return Step{}, err
	}
	if len(orgs) == 0 {
		r.log.Info("proposal acceptance queued for every organization", zap.String("program", prog.Slug))
		return Step{Done: true}, nil
	}

	org := orgs[0]
	if err := taskqueue.AcceptProposalsAccept.Enqueue(ctx, r.tasks,
		map[string]string{"org_key": org.ID.Hex()}, time.Time{}); err != nil {
		return Step{}, err
	}
	step := Step{Processed: 1, Next: org.ID}
	return step, r.continueWith(ctx, taskqueue.AcceptProposalsMain, map[string]string{"program_key": prog.ID.Hex()}, org.ID)
}

// organization resolves an org key (hex id) and its program.
func (r *Runner) organization(ctx context.Context, key string) (models.Organization, models.Program, error) {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return models.Organization{}, models.Program{}, ErrUnknownOrganization
	}
	org, err := organizationstore.New(r.db).GetByID(ctx, id)
	if errors.Is(err, organizationstore.ErrNotFound) {
		return models.Organization{}, models.Program{}, ErrUnknownOrganization
	}
	if err != nil {
		return models.Organization{}, models.Program{}, err
	}
	prog, err := programstore.New(r.db).GetByID(ctx, org.ProgramID)
	if errors.Is(err, programstore.ErrNotFound) {
		return models.Organization{}, models.Program{}, ErrUnknownProgram
	}
	return org, prog, err
}

// AcceptOrganization turns the organization's marked pending proposals
// into projects, marks the students as winners, mails them, and queues the
// rejection of everything left pending.
func (r *Runner) AcceptOrganization(ctx context.Context, orgKey string) (Step, error) {
	org, prog, err := r.organization(ctx, orgKey)
	if err != nil {
		return Step{}, err
	}
	proposals := proposalstore.New(r.db)
	marked, err := proposals.ListToAccept(ctx, org.ID)
	if err != nil {
		return Step{}, err
	}

	profiles := profilestore.New(r.db)
	var step Step
	for _, p := range marked {
		err := txn.Run(ctx, r.db, r.log, func(ctx context.Context) error {
			if _, err := projectstore.New(r.db).CreateFromProposal(ctx, p); err != nil && !errors.Is(err, projectstore.ErrAlreadyAccepted) {
				return err
			}
			if err := proposals.SetStatus(ctx, p.ID, models.ProposalAccepted); err != nil {
				return err
			}
			return profiles.MarkWinner(ctx, p.StudentProfileID, org.ID)
		})
		if err != nil {
			return step, err
		}
		step.Processed++

		student, err := profiles.GetByID(ctx, p.StudentProfileID)
		if err != nil {
			r.log.Warn("accepted proposal without student profile",
				zap.String("proposal_id", p.ID.Hex()), zap.Error(err))
			continue
		}
		data := mailer.MessageData{Name: student.PublicName, Program: prog.Name, Organization: org.Name}
		r.mailTo(ctx, mailer.BuildStudentDecision(true, prog.Messages.AcceptedStudents, data), student.Email)
		r.mailTo(ctx, mailer.BuildStudentWelcome(prog.Messages.AcceptedStudentsWelcome, data), student.Email)
		if err := taskqueue.EnqueueRefreshUser(ctx, r.tasks, prog.ID, student.UserID); err != nil {
			r.log.Warn("queue participant refresh failed", zap.String("user_id", student.UserID.Hex()), zap.Error(err))
		}
	}
	r.audit.ProposalsAccepted(ctx, prog.ID, org.ID, step.Processed)

	step.Done = true
	return step, taskqueue.AcceptProposalsReject.Enqueue(ctx, r.tasks,
		map[string]string{"org_key": org.ID.Hex()}, time.Time{})
}

// RejectOrganization rejects every proposal of the organization still
// pending and mails the students.
func (r *Runner) RejectOrganization(ctx context.Context, orgKey string) (Step, error) {
	org, prog, err := r.organization(ctx, orgKey)
	if err != nil {
		return Step{}, err
	}
	proposals := proposalstore.New(r.db)
	pending, err := proposals.ListPending(ctx, org.ID)
	if err != nil {
		return Step{}, err
	}

	profiles := profilestore.New(r.db)
	step := Step{Done: true}
	for _, p := range pending {
		if err := proposals.SetStatus(ctx, p.ID, models.ProposalRejected); err != nil {
			return step, err
		}
		step.Processed++
		student, err := profiles.GetByID(ctx, p.StudentProfileID)
		if err != nil {
			continue
		}
		r.mailTo(ctx, mailer.BuildStudentDecision(false, prog.Messages.RejectedStudents, mailer.MessageData{
			Name: student.PublicName, Program: prog.Name, Organization: org.Name,
		}), student.Email)
	}
	r.log.Info("pending proposals rejected", zap.String("org", org.OrgID), zap.Int("rejected", step.Processed))
	return step, nil
}
