// internal/app/store/conversationusers/conversationuserstore.go
package conversationuserstore

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

// ErrNotFound is returned when the user is not a participant.
var ErrNotFound = errors.New("not a participant of this conversation")

// Store holds the materialized participant set of each conversation.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("conversation_users")}
}

// Ensure adds userID to the conversation if missing. New participants get
// notifications enabled and have seen nothing yet. It reports whether a row
// was created.
func (s *Store) Ensure(ctx context.Context, conv models.Conversation, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"conversation_id": conv.ID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"_id":                  primitive.NewObjectID(),
			"program_id":           conv.ProgramID,
			"enable_notifications": true,
			"last_message_seen_on": time.Time{},
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// Remove deletes the given participants.
func (s *Store) Remove(ctx context.Context, convID primitive.ObjectID, userIDs []primitive.ObjectID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"conversation_id": convID, "user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Get loads one participant row.
func (s *Store) Get(ctx context.Context, convID, userID primitive.ObjectID) (models.ConversationUser, error) {
	var cu models.ConversationUser
	err := s.c.FindOne(ctx, bson.M{"conversation_id": convID, "user_id": userID}).Decode(&cu)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ConversationUser{}, ErrNotFound
	}
	return cu, err
}

// UserIDs returns the conversation's participant user IDs.
func (s *Store) UserIDs(ctx context.Context, convID primitive.ObjectID) ([]primitive.ObjectID, error) {
	rows, err := s.find(ctx, bson.M{"conversation_id": convID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}

// ListForUser returns the user's participant rows, optionally within one
// program.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, programID *primitive.ObjectID) ([]models.ConversationUser, error) {
	filter := bson.M{"user_id": userID}
	if programID != nil {
		filter["program_id"] = *programID
	}
	return s.find(ctx, filter)
}

// Subscribers returns the participants with notifications enabled, except
// exclude (usually the author).
func (s *Store) Subscribers(ctx context.Context, convID, exclude primitive.ObjectID) ([]primitive.ObjectID, error) {
	rows, err := s.find(ctx, bson.M{
		"conversation_id":      convID,
		"enable_notifications": true,
		"user_id":              bson.M{"$ne": exclude},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}

// MarkRead records that the user has seen messages up to at.
func (s *Store) MarkRead(ctx context.Context, convID, userID primitive.ObjectID, at time.Time) error {
	return s.set(ctx, convID, userID, bson.M{"last_message_seen_on": at})
}

// SetNotifications toggles notification mail for the participant.
func (s *Store) SetNotifications(ctx context.Context, convID, userID primitive.ObjectID, enabled bool) error {
	return s.set(ctx, convID, userID, bson.M{"enable_notifications": enabled})
}

func (s *Store) set(ctx context.Context, convID, userID primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"conversation_id": convID, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.ConversationUser, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ConversationUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
