package anonconnectionstore_test

import (
	"errors"
	"testing"
	"time"

	anonconnectionstore "github.com/dalemusser/melange/internal/app/store/anonconnections"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/google/uuid"
)

func TestStore_CreateAndClaimWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := anonconnectionstore.New(db, 0)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prog := fixtures.CreateProgram(ctx, "gsoc")
	org := fixtures.CreateOrganization(ctx, prog.ID, "Org", models.OrgStatusAccepted)

	a, err := store.Create(ctx, org, " New@Mentor.org ", roles.MentorRole)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(a.Token); err != nil {
		t.Errorf("token is not a uuid: %q", a.Token)
	}
	if a.Email != "new@mentor.org" || a.ProgramID != prog.ID {
		t.Errorf("unexpected invitation %+v", a)
	}
	if d := a.ExpirationDate.Sub(a.CreatedAt); d != anonconnectionstore.DefaultTTL {
		t.Errorf("ttl = %v", d)
	}

	now := time.Now().UTC()
	if _, err := store.GetValid(ctx, a.Token, now); err != nil {
		t.Errorf("GetValid: %v", err)
	}
	if _, err := store.GetValid(ctx, a.Token, now.Add(8*24*time.Hour)); !errors.Is(err, anonconnectionstore.ErrNotFound) {
		t.Errorf("expired token: got %v", err)
	}
	if _, err := store.GetValid(ctx, "nope", now); !errors.Is(err, anonconnectionstore.ErrNotFound) {
		t.Errorf("unknown token: got %v", err)
	}

	n, err := store.DeleteExpired(ctx, now.Add(8*24*time.Hour))
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired = %d, %v", n, err)
	}

	if _, err := store.Create(ctx, org, "x@y.org", "boss"); err == nil {
		t.Error("expected invalid role error")
	}
}
