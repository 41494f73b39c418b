// internal/app/store/connections/connectionstore.go
package connectionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("connection not found")
	// ErrConnectionExists is returned when the profile and organization are
	// already connected.
	ErrConnectionExists = errors.New("connection already exists")
	// ErrStale is returned when the stored roles changed since they were read.
	ErrStale = errors.New("connection was modified concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("connections")}
}

// Create inserts a connection. Connections are never deleted.
func (s *Store) Create(ctx context.Context, c models.Connection) (models.Connection, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	if c.UserRole == "" {
		c.UserRole = roles.NoRole
	}
	if c.OrgRole == "" {
		c.OrgRole = roles.NoRole
	}
	if !roles.ValidUserRole(c.UserRole) || !roles.ValidOrgRole(c.OrgRole) {
		return models.Connection{}, errors.New("invalid connection roles")
	}
	c.CreatedOn = now
	c.LastModified = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Connection{}, ErrConnectionExists
		}
		return models.Connection{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Connection, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByProfileOrg loads the connection between a profile and an organization.
func (s *Store) GetByProfileOrg(ctx context.Context, profileID, orgID primitive.ObjectID) (models.Connection, error) {
	return s.findOne(ctx, bson.M{"profile_id": profileID, "organization_id": orgID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Connection, error) {
	var c models.Connection
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Connection{}, ErrNotFound
		}
		return models.Connection{}, err
	}
	return c, nil
}

// UpdateRoles stores a role transition. The write only applies when the
// stored roles still equal from; otherwise ErrStale is returned.
func (s *Store) UpdateRoles(ctx context.Context, id primitive.ObjectID, from, to roles.State, seenByUser, seenByOrg bool) (models.Connection, error) {
	var c models.Connection
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_role": from.UserRole, "org_role": from.OrgRole},
		bson.M{"$set": bson.M{
			"user_role":     to.UserRole,
			"org_role":      to.OrgRole,
			"seen_by_user":  seenByUser,
			"seen_by_org":   seenByOrg,
			"last_modified": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.Connection{}, gerr
		}
		return models.Connection{}, ErrStale
	}
	if err != nil {
		return models.Connection{}, err
	}
	return c, nil
}

// MarkSeenByUser records that the user side viewed the connection.
func (s *Store) MarkSeenByUser(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"seen_by_user": true})
}

// MarkSeenByOrg records that the organization side viewed the connection.
func (s *Store) MarkSeenByOrg(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"seen_by_org": true})
}

// Touch sets both seen flags and bumps last_modified. Used when one side
// posts a message: that side has seen it, the other has not.
func (s *Store) Touch(ctx context.Context, id primitive.ObjectID, seenByUser, seenByOrg bool) error {
	return s.set(ctx, id, bson.M{
		"seen_by_user":  seenByUser,
		"seen_by_org":   seenByOrg,
		"last_modified": time.Now().UTC(),
	})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns the user's connections in a program, most recently
// modified first. unseenOnly keeps those the user has not seen.
func (s *Store) ListForUser(ctx context.Context, userID, programID primitive.ObjectID, unseenOnly bool) ([]models.Connection, error) {
	filter := bson.M{"user_id": userID, "program_id": programID}
	if unseenOnly {
		filter["seen_by_user"] = false
	}
	return s.find(ctx, filter)
}

// ListForOrg returns an organization's connections, most recently modified
// first. unseenOnly keeps those the organization has not seen.
func (s *Store) ListForOrg(ctx context.Context, orgID primitive.ObjectID, unseenOnly bool) ([]models.Connection, error) {
	filter := bson.M{"organization_id": orgID}
	if unseenOnly {
		filter["seen_by_org"] = false
	}
	return s.find(ctx, filter)
}

// CountUnseenByUser counts connections the user has not seen, across
// programs.
func (s *Store) CountUnseenByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "seen_by_user": false})
}

// CountUnseenByOrgs counts connections not yet seen by any of the given
// organizations.
func (s *Store) CountUnseenByOrgs(ctx context.Context, orgIDs []primitive.ObjectID) (int64, error) {
	if len(orgIDs) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"organization_id": bson.M{"$in": orgIDs}, "seen_by_org": false})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Connection, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "last_modified", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Connection
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
