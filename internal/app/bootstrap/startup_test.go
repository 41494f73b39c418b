package bootstrap

import (
	"strings"
	"testing"

	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureSiteAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateUser(ctx, "Site Owner", "owner@example.org", models.UserRoleUser)

	if err := ensureSiteAdmin(ctx, db, "Owner@Example.org", testLogger()); err != nil {
		t.Fatalf("ensureSiteAdmin failed: %v", err)
	}

	got, err := userstore.New(db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Role != models.UserRoleAdmin {
		t.Errorf("expected role %q, got %q", models.UserRoleAdmin, got.Role)
	}
}

func TestEnsureSiteAdmin_MissingAccountIsNotAnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureSiteAdmin(ctx, db, "nobody@example.org", testLogger()); err != nil {
		t.Fatalf("ensureSiteAdmin failed: %v", err)
	}
	n, err := db.Collection("users").CountDocuments(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users to be created, got %d", n)
	}
}

func TestEnsureSiteAdmin_BlankEmailSkips(t *testing.T) {
	// No database needed: a blank email returns before any lookup.
	if err := ensureSiteAdmin(t.Context(), nil, "", testLogger()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := AppConfig{
		MongoURI:   "mongodb://localhost:27017",
		BaseURL:    "http://localhost:8080",
		TaskSecret: strings.Repeat("s", minTaskSecret),
	}

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid dev", env: "dev"},
		{name: "valid prod", env: "prod"},
		{name: "bad mongo uri", env: "dev", mutate: func(c *AppConfig) { c.MongoURI = "postgres://x" }, wantErr: "MongoDB URI"},
		{name: "relative base url", env: "dev", mutate: func(c *AppConfig) { c.BaseURL = "/melange" }, wantErr: "base_url"},
		{name: "missing task secret", env: "dev", mutate: func(c *AppConfig) { c.TaskSecret = "" }, wantErr: "task_secret"},
		{name: "short secret allowed in dev", env: "dev", mutate: func(c *AppConfig) { c.TaskSecret = "short" }},
		{name: "short secret rejected in prod", env: "prod", mutate: func(c *AppConfig) { c.TaskSecret = "short" }, wantErr: "at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example,")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("unexpected list: %#v", got)
	}
	if splitList("") != nil {
		t.Error("expected nil for empty input")
	}
}
