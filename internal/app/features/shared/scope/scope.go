// Package scope resolves the program named in the URL and the signed-in
// actor within it. Program-scoped features start every handler here.
package scope

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	"github.com/dalemusser/melange/internal/app/features/shared/request"
	"github.com/dalemusser/melange/internal/app/policy/orgpolicy"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	"github.com/dalemusser/melange/internal/app/system/authz"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProgramParam is the chi URL parameter holding the program key
// (slug or hex id).
const ProgramParam = "program"

// Scope is one request's program and actor.
type Scope struct {
	Program models.Program
	Actor   orgpolicy.Actor
}

// Program loads the program from the URL. Invisible programs are hidden
// from everyone but site admins.
func Program(ctx context.Context, db *mongo.Database, r *http.Request) (models.Program, error) {
	key := chi.URLParam(r, ProgramParam)
	p, err := programstore.New(db).GetByKey(ctx, key)
	if errors.Is(err, programstore.ErrNotFound) {
		return models.Program{}, uierrors.NotFound("Program not found.")
	}
	if err != nil {
		return models.Program{}, err
	}
	if p.Status != models.ProgramVisible && !authz.IsAdmin(r) {
		return models.Program{}, uierrors.NotFound("Program not found.")
	}
	return p, nil
}

// Load resolves the program and requires a signed-in actor.
func Load(ctx context.Context, db *mongo.Database, r *http.Request) (Scope, error) {
	p, err := Program(ctx, db, r)
	if err != nil {
		return Scope{}, err
	}
	a, ok, err := orgpolicy.Load(ctx, db, r, p.ID)
	if err != nil {
		return Scope{}, err
	}
	if !ok {
		return Scope{}, uierrors.Unauthorized("Sign in required.")
	}
	return Scope{Program: p, Actor: a}, nil
}

// RequireProfile fails with 403 unless the actor has an active profile in
// the program.
func (s Scope) RequireProfile() (models.Profile, error) {
	if s.Actor.Profile == nil {
		return models.Profile{}, uierrors.Forbidden("Create a profile for this program first.")
	}
	if s.Actor.Profile.Status != models.ProfileStatusActive {
		return models.Profile{}, uierrors.Forbidden("Your profile in this program is not active.")
	}
	return *s.Actor.Profile, nil
}

// Organization loads orgID and checks it belongs to the program.
func (s Scope) Organization(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID) (models.Organization, error) {
	org, err := organizationstore.New(db).GetByID(ctx, orgID)
	if errors.Is(err, organizationstore.ErrNotFound) || (err == nil && org.ProgramID != s.Program.ID) {
		return models.Organization{}, uierrors.NotFound("Organization not found.")
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// OrganizationParam loads the organization named by the chi URL parameter
// name (hex id or org_id slug).
func (s Scope) OrganizationParam(ctx context.Context, db *mongo.Database, r *http.Request, name string) (models.Organization, error) {
	return s.OrganizationKey(ctx, db, chi.URLParam(r, name))
}

// OrganizationKey loads an organization of the program by hex id or org_id.
func (s Scope) OrganizationKey(ctx context.Context, db *mongo.Database, key string) (models.Organization, error) {
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		return s.Organization(ctx, db, oid)
	}
	org, err := organizationstore.New(db).GetByOrgID(ctx, s.Program.ID, key)
	if errors.Is(err, organizationstore.ErrNotFound) {
		return models.Organization{}, uierrors.NotFound("Organization not found.")
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// RequireOrgAdmin fails with 403 unless the actor administers org.
func (s Scope) RequireOrgAdmin(org models.Organization) error {
	if !s.Actor.CanAdminOrg(org.ID) {
		return uierrors.Forbidden("Organization administrator access required.")
	}
	return nil
}

// RequireOrgMember fails with 403 unless the actor mentors or administers org.
func (s Scope) RequireOrgMember(org models.Organization) error {
	if !s.Actor.CanMentorOrg(org.ID) {
		return uierrors.Forbidden("Organization member access required.")
	}
	return nil
}

// RequireAdmin fails with 403 unless the actor is a site admin.
func (s Scope) RequireAdmin() error {
	if !s.Actor.IsAdmin {
		return uierrors.Forbidden("Administrator access required.")
	}
	return nil
}

// Mentors parses raw profile ids and checks each is an active mentor of
// orgID. Unknown or non-mentor profiles are a 400.
func Mentors(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID, raw []string) ([]primitive.ObjectID, error) {
	ids, err := request.IDs(raw, "Mentor")
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	profiles, err := profilestore.New(db).GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	ok := make(map[primitive.ObjectID]bool, len(profiles))
	for _, p := range profiles {
		if p.Status == models.ProfileStatusActive && p.IsMentorFor(orgID) {
			ok[p.ID] = true
		}
	}
	for _, id := range ids {
		if !ok[id] {
			return nil, uierrors.BadRequest("Profile " + id.Hex() + " is not a mentor of this organization.")
		}
	}
	return ids, nil
}
