// Package membership decides whether a user belongs in a conversation
// based on the conversation's declarative recipient criteria.
package membership

import (
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Belongs reports whether userID (with profile, which may be nil when the
// user has no profile in the conversation's program) belongs in conv.
//
// When ignoreAutoUpdate is false and conv does not auto-update its users,
// membership is frozen and Belongs returns true.
func Belongs(conv models.Conversation, userID primitive.ObjectID, profile *models.Profile, ignoreAutoUpdate bool) bool {
	if !conv.AutoUpdateUsers && !ignoreAutoUpdate {
		return true
	}
	if conv.CreatorID == userID {
		return true
	}

	switch conv.RecipientsType {
	case models.RecipientsProgram:
		if profile == nil {
			return false
		}
		return matchesProgram(conv, *profile)
	case models.RecipientsOrganization:
		if profile == nil || conv.OrganizationID == nil {
			return false
		}
		return matchesOrganization(conv, *conv.OrganizationID, *profile)
	}

	// user conversations are managed explicitly
	return true
}

func matchesProgram(conv models.Conversation, p models.Profile) bool {
	switch {
	case conv.IncludeAdmins && p.IsOrgAdmin:
		return true
	case conv.IncludeMentors && p.IsMentor:
		return true
	case conv.IncludeStudents && p.IsStudent:
		return true
	case conv.IncludeWinners && p.IsStudent && p.Student != nil && p.Student.IsWinner:
		return true
	}
	return false
}

func matchesOrganization(conv models.Conversation, orgID primitive.ObjectID, p models.Profile) bool {
	switch {
	case p.Status != models.ProfileStatusActive:
		return false
	case conv.IncludeAdmins && p.IsOrgAdminFor(orgID):
		return true
	case conv.IncludeMentors && p.IsMentorFor(orgID):
		return true
	case conv.IncludeWinners && p.IsStudent && p.IsWinnerFor(orgID):
		return true
	}
	return false
}

// ProfileFilter returns the Mongo filter selecting every profile in the
// program that matches conv's criteria. Organization conversations only
// select active profiles. It returns nil when no profile can
// match (user conversations, or no include flags set).
func ProfileFilter(conv models.Conversation) map[string]any {
	var or []map[string]any
	switch conv.RecipientsType {
	case models.RecipientsProgram:
		if conv.IncludeAdmins {
			or = append(or, map[string]any{"is_org_admin": true})
		}
		if conv.IncludeMentors {
			or = append(or, map[string]any{"is_mentor": true})
		}
		if conv.IncludeStudents {
			or = append(or, map[string]any{"is_student": true})
		}
		if conv.IncludeWinners {
			or = append(or, map[string]any{"is_student": true, "student.is_winner": true})
		}
	case models.RecipientsOrganization:
		if conv.OrganizationID == nil {
			return nil
		}
		org := *conv.OrganizationID
		if conv.IncludeAdmins {
			or = append(or, map[string]any{"org_admin_for": org})
		}
		if conv.IncludeMentors {
			or = append(or, map[string]any{"mentor_for": org})
		}
		if conv.IncludeWinners {
			or = append(or, map[string]any{"is_student": true, "student.winner_for": org})
		}
	}
	if len(or) == 0 {
		return nil
	}
	filter := map[string]any{
		"program_id": conv.ProgramID,
		"$or":        or,
	}
	if conv.RecipientsType == models.RecipientsOrganization {
		filter["status"] = models.ProfileStatusActive
	}
	return filter
}
