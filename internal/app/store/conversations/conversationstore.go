// internal/app/store/conversations/conversationstore.go
package conversationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("conversation not found")
	errBadRecipients = errors.New(`recipients_type must be "program"|"organization"|"user"`)
	errOrgRequired   = errors.New("organization conversations need organization_id")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("conversations")}
}

// Create inserts a conversation.
func (s *Store) Create(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	switch conv.RecipientsType {
	case models.RecipientsProgram, models.RecipientsUser:
	case models.RecipientsOrganization:
		if conv.OrganizationID == nil {
			return models.Conversation{}, errOrgRequired
		}
	default:
		return models.Conversation{}, errBadRecipients
	}
	now := time.Now().UTC()
	conv.ID = primitive.NewObjectID()
	conv.CreatedAt = now
	conv.LastMessageOn = now
	if _, err := s.c.InsertOne(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Conversation, error) {
	var c models.Conversation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Conversation{}, ErrNotFound
		}
		return models.Conversation{}, err
	}
	return c, nil
}

// GetByIDs loads conversations, most recent activity first.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "last_message_on", Value: -1}}))
}

// ListByProgram returns the program's conversations. autoOnly keeps those
// whose participants follow their criteria.
func (s *Store) ListByProgram(ctx context.Context, programID primitive.ObjectID, autoOnly bool) ([]models.Conversation, error) {
	filter := bson.M{"program_id": programID}
	if autoOnly {
		filter["auto_update_users"] = true
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Conversation, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Conversation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TouchLastMessage records the time of the newest message.
func (s *Store) TouchLastMessage(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "last_message_on": bson.M{"$lt": at}},
		bson.M{"$set": bson.M{"last_message_on": at}})
	return err
}
