// internal/app/system/jobs/duplicates.go
package jobs

import (
	"context"
	"time"

	duplicatestore "github.com/dalemusser/melange/internal/app/store/duplicates"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StartDuplicates resets the program's duplicate records and queues the
// calculation. With repeat it also schedules itself again.
func (r *Runner) StartDuplicates(ctx context.Context, programKey string, repeat bool) error {
	prog, err := r.program(ctx, programKey)
	if err != nil {
		return err
	}
	dups := duplicatestore.New(r.db)
	if err := dups.MarkProcessing(ctx, prog.ID); err != nil {
		return err
	}
	if _, err := dups.Clear(ctx, prog.ID); err != nil {
		return err
	}
	params := map[string]string{"program_key": prog.ID.Hex()}
	if err := taskqueue.DuplicatesCalculate.Enqueue(ctx, r.tasks, params, time.Time{}); err != nil {
		return err
	}
	if repeat {
		next := map[string]string{"program_key": prog.ID.Hex(), "repeat": "yes"}
		return taskqueue.DuplicatesStart.Enqueue(ctx, r.tasks, next, time.Now().UTC().Add(r.cfg.repeat()))
	}
	return nil
}

// CalculateDuplicates records, for one page of accepted organizations,
// every student whose marked proposals span more than one organization.
// The last page marks the calculation finished.
func (r *Runner) CalculateDuplicates(ctx context.Context, programKey, after string) (Step, error) {
	prog, err := r.program(ctx, programKey)
	if err != nil {
		return Step{}, err
	}
	orgs, err := organizationstore.New(r.db).BatchAfter(ctx, prog.ID,
		[]string{models.OrgStatusAccepted}, cursor(after), r.cfg.batch())
	if err != nil {
		return Step{}, err
	}

	var step Step
	ids := make([]primitive.ObjectID, 0, len(orgs))
	for _, o := range orgs {
		ids = append(ids, o.ID)
		step.Next = o.ID
	}
	step.Processed = len(orgs)

	proposals := proposalstore.New(r.db)
	marked, err := proposals.ListMarkedForOrgs(ctx, ids)
	if err != nil {
		return step, err
	}
	seen := map[primitive.ObjectID]bool{}
	dups := duplicatestore.New(r.db)
	for _, p := range marked {
		if seen[p.StudentProfileID] {
			continue
		}
		seen[p.StudentProfileID] = true

		all, err := proposals.ListByStudent(ctx, prog.ID, p.StudentProfileID)
		if err != nil {
			return step, err
		}
		var orgIDs, propIDs []primitive.ObjectID
		inOrg := map[primitive.ObjectID]bool{}
		for _, sp := range all {
			if sp.Status != models.ProposalPending || !sp.AcceptAsProject {
				continue
			}
			propIDs = append(propIDs, sp.ID)
			if !inOrg[sp.OrganizationID] {
				inOrg[sp.OrganizationID] = true
				orgIDs = append(orgIDs, sp.OrganizationID)
			}
		}
		if len(orgIDs) < 2 {
			continue
		}
		if _, err := dups.Merge(ctx, prog.ID, p.StudentProfileID, orgIDs, propIDs); err != nil {
			return step, err
		}
	}

	if len(orgs) < r.cfg.batch() {
		step.Done = true
		r.log.Info("proposal duplicates calculated", zap.String("program", prog.Slug))
		return step, dups.MarkCalculated(ctx, prog.ID, time.Now().UTC())
	}
	return step, r.continueWith(ctx, taskqueue.DuplicatesCalculate, map[string]string{"program_key": prog.ID.Hex()}, step.Next)
}
