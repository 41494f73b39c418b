// Package rolepolicy decides whether a profile may give up a role it holds
// for an organization.
//
// Rules:
//   - An org admin may resign only if another active profile is also an org
//     admin for the organization.
//   - A mentor may resign only if it is not an org admin for the
//     organization and is not listed as mentor on any proposal, project, or
//     open org task of the organization.
//   - Dropping every role requires both: an org admin giving up all roles
//     must also be free of mentor work.
package rolepolicy

import (
	"context"

	orgtaskstore "github.com/dalemusser/melange/internal/app/store/orgtasks"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	projectstore "github.com/dalemusser/melange/internal/app/store/projects"
	proposalstore "github.com/dalemusser/melange/internal/app/store/proposals"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CanResignAsOrgAdmin reports whether profile may stop being an org admin
// for orgID.
func CanResignAsOrgAdmin(ctx context.Context, db *mongo.Database, profile models.Profile, orgID primitive.ObjectID) (bool, error) {
	n, err := profilestore.New(db).CountOtherOrgAdmins(ctx, orgID, profile.ID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CanResignAsMentor reports whether profile may stop being a mentor for orgID.
func CanResignAsMentor(ctx context.Context, db *mongo.Database, profile models.Profile, orgID primitive.ObjectID) (bool, error) {
	if profile.IsOrgAdminFor(orgID) {
		return false, nil
	}
	return freeOfMentorWork(ctx, db, profile, orgID)
}

// freeOfMentorWork reports whether profile is not listed as mentor on any
// proposal, project, or open org task of orgID.
func freeOfMentorWork(ctx context.Context, db *mongo.Database, profile models.Profile, orgID primitive.ObjectID) (bool, error) {
	counters := []func(context.Context, primitive.ObjectID, primitive.ObjectID) (int64, error){
		proposalstore.New(db).CountMentoredInOrg,
		projectstore.New(db).CountMentoredInOrg,
		orgtaskstore.New(db).CountOpenMentoredInOrg,
	}
	for _, count := range counters {
		n, err := count(ctx, orgID, profile.ID)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// IsNoRoleEligibleForOrg reports whether profile may drop every role it
// holds for orgID.
func IsNoRoleEligibleForOrg(ctx context.Context, db *mongo.Database, profile models.Profile, orgID primitive.ObjectID) (bool, error) {
	if profile.IsOrgAdminFor(orgID) {
		ok, err := CanResignAsOrgAdmin(ctx, db, profile, orgID)
		if err != nil || !ok {
			return false, err
		}
	}
	if profile.IsOrgAdminFor(orgID) || profile.IsMentorFor(orgID) {
		return freeOfMentorWork(ctx, db, profile, orgID)
	}
	return true, nil
}

// IsMentorRoleEligibleForOrg reports whether profile may hold exactly the
// mentor role for orgID, giving up org admin if it has it.
func IsMentorRoleEligibleForOrg(ctx context.Context, db *mongo.Database, profile models.Profile, orgID primitive.ObjectID) (bool, error) {
	if profile.IsOrgAdminFor(orgID) {
		return CanResignAsOrgAdmin(ctx, db, profile, orgID)
	}
	return true, nil
}
