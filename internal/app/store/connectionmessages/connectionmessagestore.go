// internal/app/store/connectionmessages/connectionmessagestore.go
package connectionmessagestore

import (
	"context"
	"time"

	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds connection messages. Messages are immutable once written.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("connection_messages")}
}

// AddAuto appends an auto-generated message narrating a role change.
func (s *Store) AddAuto(ctx context.Context, connectionID primitive.ObjectID, content string) (models.ConnectionMessage, error) {
	return s.insert(ctx, models.ConnectionMessage{
		ConnectionID:    connectionID,
		Content:         content,
		IsAutoGenerated: true,
	})
}

// AddUserMessage appends a message written by authorID.
func (s *Store) AddUserMessage(ctx context.Context, connectionID, authorID primitive.ObjectID, content string) (models.ConnectionMessage, error) {
	return s.insert(ctx, models.ConnectionMessage{
		ConnectionID: connectionID,
		AuthorID:     &authorID,
		Content:      content,
	})
}

func (s *Store) insert(ctx context.Context, m models.ConnectionMessage) (models.ConnectionMessage, error) {
	m.ID = primitive.NewObjectID()
	m.Created = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.ConnectionMessage{}, err
	}
	return m, nil
}

// List returns a connection's messages, oldest first.
func (s *Store) List(ctx context.Context, connectionID primitive.ObjectID) ([]models.ConnectionMessage, error) {
	cur, err := s.c.Find(ctx, bson.M{"connection_id": connectionID},
		options.Find().SetSort(bson.D{{Key: "created", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ConnectionMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of messages on a connection.
func (s *Store) Count(ctx context.Context, connectionID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"connection_id": connectionID})
}
