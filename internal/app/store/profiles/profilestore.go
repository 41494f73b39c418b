// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("profile not found")
	// ErrDuplicateProfile is returned when the user already has a profile in
	// the program.
	ErrDuplicateProfile = errors.New("user already has a profile in this program")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// Create inserts a profile. Role lists start empty; students get an empty
// StudentData block.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.PublicName = normalize.Name(p.PublicName)
	p.Email = normalize.Email(p.Email)
	p.LinkID = normalize.Slug(p.LinkID)
	if p.Status == "" {
		p.Status = models.ProfileStatusActive
	}
	p.MentorFor = []primitive.ObjectID{}
	p.OrgAdminFor = []primitive.ObjectID{}
	p.IsMentor = false
	p.IsOrgAdmin = false
	if p.IsStudent {
		p.Student = &models.StudentData{WinnerFor: []primitive.ObjectID{}}
	} else {
		p.Student = nil
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Profile{}, ErrDuplicateProfile
		}
		return models.Profile{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Profile, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUserProgram loads the user's profile in a program.
func (s *Store) GetByUserProgram(ctx context.Context, userID, programID primitive.ObjectID) (models.Profile, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "program_id": programID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Profile, error) {
	var p models.Profile
	if err := s.c.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

// ListByUser returns every profile the user holds, across programs.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Profile, error) {
	return s.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// GetByIDs loads the profiles with the given IDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// Find returns profiles matching filter.
func (s *Store) Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]models.Profile, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOrgAdmins returns the active profiles administering orgID.
func (s *Store) ListOrgAdmins(ctx context.Context, orgID primitive.ObjectID) ([]models.Profile, error) {
	return s.Find(ctx, bson.M{"org_admin_for": orgID, "status": models.ProfileStatusActive})
}

// CountOtherOrgAdmins counts active profiles other than exclude that
// administer orgID.
func (s *Store) CountOtherOrgAdmins(ctx context.Context, orgID, exclude primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"org_admin_for": orgID,
		"status":        models.ProfileStatusActive,
		"_id":           bson.M{"$ne": exclude},
	})
}

// SetStatus activates or bans a profile.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if status != models.ProfileStatusActive && status != models.ProfileStatusBanned {
		return errors.New(`status must be "active"|"banned"`)
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Role assignment                                                             */
/* -------------------------------------------------------------------------- */

// Assignment is the profile before and after an Assign* call.
type Assignment struct {
	Before models.Profile
	After  models.Profile
}

// BecameMentor reports whether the profile had no mentor role anywhere in
// the program before and has one now.
func (a Assignment) BecameMentor() bool {
	return !a.Before.IsMentor && a.After.IsMentor
}

// AssignNoRole removes orgID from both role lists.
func (s *Store) AssignNoRole(ctx context.Context, profileID, orgID primitive.ObjectID) (Assignment, error) {
	return s.Assign(ctx, profileID, orgID, roles.None)
}

// AssignMentorRole puts orgID in mentor_for and removes it from org_admin_for.
func (s *Store) AssignMentorRole(ctx context.Context, profileID, orgID primitive.ObjectID) (Assignment, error) {
	return s.Assign(ctx, profileID, orgID, roles.Mentor)
}

// AssignOrgAdminRole puts orgID in both mentor_for and org_admin_for.
func (s *Store) AssignOrgAdminRole(ctx context.Context, profileID, orgID primitive.ObjectID) (Assignment, error) {
	return s.Assign(ctx, profileID, orgID, roles.OrgAdmin)
}

// Assign makes the profile hold exactly level for orgID and recomputes the
// is_mentor/is_org_admin flags from the resulting lists. Applying the same
// level twice leaves the profile unchanged.
func (s *Store) Assign(ctx context.Context, profileID, orgID primitive.ObjectID, level roles.Level) (Assignment, error) {
	org := bson.A{orgID}
	mentorFor := bson.M{"$ifNull": bson.A{"$mentor_for", bson.A{}}}
	adminFor := bson.M{"$ifNull": bson.A{"$org_admin_for", bson.A{}}}
	add := func(list bson.M) bson.M { return bson.M{"$setUnion": bson.A{list, org}} }
	remove := func(list bson.M) bson.M { return bson.M{"$setDifference": bson.A{list, org}} }

	var lists bson.M
	switch level {
	case roles.OrgAdmin:
		lists = bson.M{"mentor_for": add(mentorFor), "org_admin_for": add(adminFor)}
	case roles.Mentor:
		lists = bson.M{"mentor_for": add(mentorFor), "org_admin_for": remove(adminFor)}
	default:
		lists = bson.M{"mentor_for": remove(mentorFor), "org_admin_for": remove(adminFor)}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: lists}},
		{{Key: "$set", Value: bson.M{
			"is_mentor":    bson.M{"$gt": bson.A{bson.M{"$size": "$mentor_for"}, 0}},
			"is_org_admin": bson.M{"$gt": bson.A{bson.M{"$size": "$org_admin_for"}, 0}},
			"updated_at":   time.Now().UTC(),
		}}},
	}

	var before models.Profile
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": profileID}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	after, err := s.GetByID(ctx, profileID)
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{Before: before, After: after}, nil
}

// MarkWinner records that the student won a project with orgID.
func (s *Store) MarkWinner(ctx context.Context, profileID, orgID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": profileID, "is_student": true},
		bson.M{
			"$set":      bson.M{"student.is_winner": true, "updated_at": time.Now().UTC()},
			"$addToSet": bson.M{"student.winner_for": orgID},
			"$inc":      bson.M{"student.number_of_projects": 1},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
