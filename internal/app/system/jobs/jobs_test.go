package jobs_test

import (
	"context"
	"testing"

	duplicatestore "github.com/dalemusser/melange/internal/app/store/duplicates"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	projectstore "github.com/dalemusser/melange/internal/app/store/projects"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/app/system/jobs"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/app/system/participants"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type sentMail struct{ sent []mailer.Email }

func (s *sentMail) Send(_ context.Context, e mailer.Email) error {
	s.sent = append(s.sent, e)
	return nil
}

type env struct {
	r       *jobs.Runner
	fx      *testutil.Fixtures
	tasks   *taskqueue.Recorder
	mail    *sentMail
	program models.Program
}

func setup(t *testing.T, batch int) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	e := &env{
		fx:    testutil.NewFixtures(t, db),
		tasks: &taskqueue.Recorder{},
		mail:  &sentMail{},
	}
	e.r = jobs.New(db, e.tasks, nil, participants.New(db, logger, 2), e.mail,
		jobs.Config{BatchSize: batch}, logger)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.program = e.fx.CreateProgram(ctx, "gsoc")
	return e
}

func (e *env) student(t *testing.T, name string) models.Profile {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, name, name+"@example.com", models.UserRoleUser)
	return e.fx.CreateStudentProfile(ctx, u, e.program.ID)
}

func TestApplyDecisions_PagesThroughOrganizations(t *testing.T) {
	e := setup(t, 2)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateOrganization(ctx, e.program.ID, "Alpha", models.OrgStatusPreAccepted)
	b := e.fx.CreateOrganization(ctx, e.program.ID, "Beta", models.OrgStatusPreRejected)
	c := e.fx.CreateOrganization(ctx, e.program.ID, "Gamma", models.OrgStatusPreAccepted)
	e.fx.CreateOrganization(ctx, e.program.ID, "Delta", models.OrgStatusApplying)
	e.fx.CreateConnectedProfile(ctx, "Alpha Admin", a, roles.OrgAdminRole)

	step, err := e.r.ApplyDecisions(ctx, e.program.Slug, "")
	require.NoError(t, err)
	assert.False(t, step.Done)
	assert.Equal(t, 2, step.Processed)

	next := e.tasks.Named(taskqueue.ApplyDecisions.Name)
	require.Len(t, next, 1)
	assert.Equal(t, b.ID.Hex(), next[0].Params["org_cursor"])

	mail := e.tasks.Named(taskqueue.MailSend.Name)
	require.Len(t, mail, 1)
	assert.Equal(t, "alpha.admin@example.com", mail[0].Params["to"])
	assert.Contains(t, mail[0].Params["body"], "Alpha has been accepted into GSOC")
	assert.Len(t, e.tasks.Named(taskqueue.ConversationsRefreshUsr.Name), 1)

	step, err = e.r.ApplyDecisions(ctx, e.program.ID.Hex(), next[0].Params["org_cursor"])
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Equal(t, 1, step.Processed)

	orgs := organizationstore.New(e.fx.DB())
	for _, tc := range []struct {
		org  models.Organization
		want string
	}{
		{a, models.OrgStatusAccepted},
		{b, models.OrgStatusRejected},
		{c, models.OrgStatusAccepted},
	} {
		got, err := orgs.GetByID(ctx, tc.org.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Status, tc.org.Name)
	}
}

func TestApplyDecisions_UnknownProgram(t *testing.T) {
	e := setup(t, 2)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := e.r.ApplyDecisions(ctx, "nope", "")
	assert.ErrorIs(t, err, jobs.ErrUnknownProgram)
}

func TestDuplicates(t *testing.T) {
	e := setup(t, 1)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateOrganization(ctx, e.program.ID, "Alpha", models.OrgStatusAccepted)
	b := e.fx.CreateOrganization(ctx, e.program.ID, "Beta", models.OrgStatusAccepted)
	twice := e.student(t, "twice")
	once := e.student(t, "once")
	e.fx.CreateProposal(ctx, twice, a, models.ProposalPending, true)
	e.fx.CreateProposal(ctx, twice, b, models.ProposalPending, true)
	e.fx.CreateProposal(ctx, once, a, models.ProposalPending, true)
	e.fx.CreateProposal(ctx, once, b, models.ProposalPending, false)

	require.NoError(t, e.r.StartDuplicates(ctx, e.program.Slug, true))
	dups := duplicatestore.New(e.fx.DB())
	st, err := dups.GetStatus(ctx, e.program.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DuplicatesProcessing, st.Status)
	require.Len(t, e.tasks.Named(taskqueue.DuplicatesCalculate.Name), 1)
	again := e.tasks.Named(taskqueue.DuplicatesStart.Name)
	require.Len(t, again, 1)
	assert.Equal(t, "yes", again[0].Params["repeat"])
	assert.False(t, again[0].ETA.IsZero())

	after := ""
	for i := 0; i < 5; i++ {
		step, err := e.r.CalculateDuplicates(ctx, e.program.Slug, after)
		require.NoError(t, err)
		if step.Done {
			break
		}
		after = step.Next.Hex()
	}

	list, err := dups.ListDuplicates(ctx, e.program.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, twice.ID, list[0].StudentProfileID)
	assert.ElementsMatch(t, []primitive.ObjectID{a.ID, b.ID}, list[0].OrganizationIDs)

	st, err = dups.GetStatus(ctx, e.program.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DuplicatesIdle, st.Status)
}

func TestAcceptProposals(t *testing.T) {
	e := setup(t, 10)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := e.fx.CreateOrganization(ctx, e.program.ID, "Alpha", models.OrgStatusAccepted)
	e.fx.CreateOrganization(ctx, e.program.ID, "Applying", models.OrgStatusApplying)
	winner := e.student(t, "winner")
	loser := e.student(t, "loser")
	won := e.fx.CreateProposal(ctx, winner, org, models.ProposalPending, true)
	lost := e.fx.CreateProposal(ctx, loser, org, models.ProposalPending, false)

	step, err := e.r.AcceptMain(ctx, e.program.Slug, "")
	require.NoError(t, err)
	assert.Equal(t, org.ID, step.Next)
	accept := e.tasks.Named(taskqueue.AcceptProposalsAccept.Name)
	require.Len(t, accept, 1)
	assert.Equal(t, org.ID.Hex(), accept[0].Params["org_key"])

	step, err = e.r.AcceptMain(ctx, e.program.Slug, org.ID.Hex())
	require.NoError(t, err)
	assert.True(t, step.Done)

	step, err = e.r.AcceptOrganization(ctx, accept[0].Params["org_key"])
	require.NoError(t, err)
	assert.Equal(t, 1, step.Processed)
	require.Len(t, e.tasks.Named(taskqueue.AcceptProposalsReject.Name), 1)
	assert.Len(t, e.tasks.Named(taskqueue.MailSend.Name), 2)

	page, err := projectstore.New(e.fx.DB()).ListPage(ctx, e.program.ID, &org.ID, paging.Request{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, won.ID, page.Items[0].ProposalID)

	p, err := profilestore.New(e.fx.DB()).GetByID(ctx, winner.ID)
	require.NoError(t, err)
	assert.True(t, p.IsWinnerFor(org.ID))

	step, err = e.r.RejectOrganization(ctx, org.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, step.Processed)

	proposals := proposalstore.New(e.fx.DB())
	got, err := proposals.GetByID(ctx, won.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalAccepted, got.Status)
	got, err = proposals.GetByID(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalRejected, got.Status)
}

func TestSendMail(t *testing.T) {
	e := setup(t, 1)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, e.r.SendMail(ctx, mailer.Email{To: "a@example.com", Subject: "Hi", TextBody: "Body"}))
	require.Len(t, e.mail.sent, 1)

	noMail := jobs.New(e.fx.DB(), e.tasks, nil, nil, nil, jobs.Config{}, zap.NewNop())
	assert.ErrorIs(t, noMail.SendMail(ctx, mailer.Email{To: "a@example.com"}), jobs.ErrNoMailer)
}
