// internal/app/store/anonconnections/anonconnectionstore.go
package anonconnectionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTTL is how long an invitation stays claimable.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("anonymous connection not found or expired")

type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a store. ttl <= 0 uses DefaultTTL.
func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection("anonymous_connections"), ttl: ttl}
}

// Create stores an invitation with a fresh token.
func (s *Store) Create(ctx context.Context, org models.Organization, email, orgRole string) (models.AnonymousConnection, error) {
	if !roles.ValidOrgRole(orgRole) {
		return models.AnonymousConnection{}, errors.New("invalid org role")
	}
	now := time.Now().UTC()
	a := models.AnonymousConnection{
		ID:             primitive.NewObjectID(),
		OrganizationID: org.ID,
		ProgramID:      org.ProgramID,
		OrgRole:        orgRole,
		Email:          normalize.Email(email),
		Token:          uuid.NewString(),
		ExpirationDate: now.Add(s.ttl),
		CreatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.AnonymousConnection{}, err
	}
	return a, nil
}

// GetValid loads an unexpired invitation by token.
func (s *Store) GetValid(ctx context.Context, token string, now time.Time) (models.AnonymousConnection, error) {
	var a models.AnonymousConnection
	err := s.c.FindOne(ctx, bson.M{"token": token, "expiration_date": bson.M{"$gt": now}}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AnonymousConnection{}, ErrNotFound
	}
	if err != nil {
		return models.AnonymousConnection{}, err
	}
	return a, nil
}

// Delete removes an invitation once it has been claimed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpired removes invitations that expired before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expiration_date": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
