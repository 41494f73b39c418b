package duplicatestore_test

import (
	"testing"
	"time"

	duplicatestore "github.com/dalemusser/melange/internal/app/store/duplicates"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_MergeMarksDuplicates(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	store := duplicatestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := primitive.NewObjectID()
	student := primitive.NewObjectID()
	orgA, orgB := primitive.NewObjectID(), primitive.NewObjectID()

	d, err := store.Merge(ctx, prog, student, []primitive.ObjectID{orgA}, []primitive.ObjectID{primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if d.IsDuplicate {
		t.Error("one organization is not a duplicate")
	}

	d, err = store.Merge(ctx, prog, student, []primitive.ObjectID{orgB, orgA}, []primitive.ObjectID{primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !d.IsDuplicate || len(d.OrganizationIDs) != 2 || len(d.ProposalIDs) != 2 {
		t.Errorf("unexpected record %+v", d)
	}

	// single-org student elsewhere
	if _, err := store.Merge(ctx, prog, primitive.NewObjectID(), []primitive.ObjectID{orgA}, nil); err != nil {
		t.Fatal(err)
	}

	dups, err := store.ListDuplicates(ctx, prog, nil)
	if err != nil || len(dups) != 1 || dups[0].StudentProfileID != student {
		t.Errorf("ListDuplicates = %v, %v", dups, err)
	}
	other := primitive.NewObjectID()
	dups, _ = store.ListDuplicates(ctx, prog, &other)
	if len(dups) != 0 {
		t.Errorf("org filter should exclude unrelated orgs: %v", dups)
	}

	n, err := store.Clear(ctx, prog)
	if err != nil || n != 2 {
		t.Errorf("Clear = %d, %v", n, err)
	}
}

func TestStore_Status(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := duplicatestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := primitive.NewObjectID()
	st, err := store.GetStatus(ctx, prog)
	if err != nil || st.Status != models.DuplicatesIdle || st.CalculatedOn != nil {
		t.Fatalf("initial status = %+v, %v", st, err)
	}

	if err := store.MarkProcessing(ctx, prog); err != nil {
		t.Fatal(err)
	}
	st, _ = store.GetStatus(ctx, prog)
	if st.Status != models.DuplicatesProcessing {
		t.Errorf("status = %q", st.Status)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.MarkCalculated(ctx, prog, now); err != nil {
		t.Fatal(err)
	}
	st, _ = store.GetStatus(ctx, prog)
	if st.Status != models.DuplicatesIdle || st.CalculatedOn == nil || !st.CalculatedOn.Equal(now) {
		t.Errorf("status after calculation = %+v", st)
	}
}
