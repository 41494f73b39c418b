package organizationstore_test

import (
	"errors"
	"testing"

	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	store := organizationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	created, err := store.Create(ctx, models.Organization{
		ProgramID:    prog.ID,
		Name:         "Python Software Foundation",
		ContactEmail: "Org@PSF.org",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.OrgID != "python-software-foundation" {
		t.Errorf("OrgID = %q", created.OrgID)
	}
	if created.NameCI == "" || created.ContactEmail != "org@psf.org" {
		t.Errorf("expected normalized fields, got %+v", created)
	}
	if created.Status != models.OrgStatusApplying {
		t.Errorf("Status = %q, want applying", created.Status)
	}

	_, err = store.Create(ctx, models.Organization{ProgramID: prog.ID, Name: "Other", OrgID: "python-software-foundation"})
	if !errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		t.Errorf("expected ErrDuplicateOrganization, got %v", err)
	}

	// Same slug in another program is fine.
	other := fixtures.CreateProgram(ctx, "gci")
	if _, err := store.Create(ctx, models.Organization{ProgramID: other.ID, Name: "Python Software Foundation"}); err != nil {
		t.Errorf("create in other program: %v", err)
	}
}

func TestStore_DecideAndPublish(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Apache", models.OrgStatusApplying)

	got, err := store.Decide(ctx, org.ID, models.OrgStatusPreRejected)
	if err != nil || got.Status != models.OrgStatusPreRejected {
		t.Fatalf("Decide = %v, %v", got.Status, err)
	}
	got, err = store.Decide(ctx, org.ID, models.OrgStatusPreAccepted)
	if err != nil || got.Status != models.OrgStatusPreAccepted {
		t.Fatalf("re-Decide = %v, %v", got.Status, err)
	}

	st, changed, err := store.PublishDecision(ctx, org.ID)
	if err != nil || !changed || st != models.OrgStatusAccepted {
		t.Fatalf("PublishDecision = %q, %v, %v", st, changed, err)
	}
	_, changed, err = store.PublishDecision(ctx, org.ID)
	if err != nil || changed {
		t.Errorf("second publish should be a no-op, got changed=%v err=%v", changed, err)
	}

	if _, err := store.Decide(ctx, org.ID, models.OrgStatusPreRejected); !errors.Is(err, organizationstore.ErrDecisionClosed) {
		t.Errorf("expected ErrDecisionClosed, got %v", err)
	}
	if _, err := store.Decide(ctx, org.ID, models.OrgStatusAccepted); err == nil {
		t.Error("expected invalid decision error")
	}
	if _, err := store.Decide(ctx, primitive.NewObjectID(), models.OrgStatusPreAccepted); !errors.Is(err, organizationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListPage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	for _, name := range []string{"Alpha", "Beta", "Gamma", "Alpine"} {
		fixtures.CreateOrganization(ctx, prog.ID, name, models.OrgStatusAccepted)
	}
	fixtures.CreateOrganization(ctx, prog.ID, "Delta", models.OrgStatusApplying)

	first, err := store.ListPage(ctx, organizationstore.ListFilter{ProgramID: prog.ID, Status: models.OrgStatusAccepted}, paging.Request{Limit: 3})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(first.Items) != 3 || first.Next == "" {
		t.Fatalf("first page: %d items, next=%q", len(first.Items), first.Next)
	}
	if first.Items[0].Name != "Alpha" || first.Items[1].Name != "Alpine" {
		t.Errorf("unexpected order: %s, %s", first.Items[0].Name, first.Items[1].Name)
	}

	second, err := store.ListPage(ctx, organizationstore.ListFilter{ProgramID: prog.ID, Status: models.OrgStatusAccepted}, paging.Request{After: first.Next, Limit: 3})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].Name != "Gamma" || second.Next != "" {
		t.Errorf("second page: %+v", second)
	}

	prefixed, err := store.ListPage(ctx, organizationstore.ListFilter{ProgramID: prog.ID, Query: "alp"}, paging.Request{})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(prefixed.Items) != 2 {
		t.Errorf("prefix search: got %d items", len(prefixed.Items))
	}
}

func TestStore_BatchAfterAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	a := fixtures.CreateOrganization(ctx, prog.ID, "A", models.OrgStatusPreAccepted)
	fixtures.CreateOrganization(ctx, prog.ID, "B", models.OrgStatusPreRejected)
	fixtures.CreateOrganization(ctx, prog.ID, "C", models.OrgStatusApplying)

	statuses := []string{models.OrgStatusPreAccepted, models.OrgStatusPreRejected}
	page, err := store.BatchAfter(ctx, prog.ID, statuses, primitive.NilObjectID, 1)
	if err != nil || len(page) != 1 || page[0].ID != a.ID {
		t.Fatalf("first batch = %v, %v", page, err)
	}
	page, err = store.BatchAfter(ctx, prog.ID, statuses, a.ID, 10)
	if err != nil || len(page) != 1 || page[0].Name != "B" {
		t.Fatalf("second batch = %v, %v", page, err)
	}

	counts, err := store.CountByStatus(ctx, prog.ID)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.OrgStatusApplying] != 1 || counts[models.OrgStatusPreAccepted] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
