// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Create stores a message sent now.
func (s *Store) Create(ctx context.Context, convID, authorID primitive.ObjectID, content string) (models.Message, error) {
	m := models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: convID,
		AuthorID:       authorID,
		Content:        content,
		SentOn:         time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListPage returns one page of a conversation's messages in send order.
// The cursor is the hex _id of the last message of the previous page.
func (s *Store) ListPage(ctx context.Context, convID primitive.ObjectID, page paging.Request) (paging.Page[models.Message], error) {
	filter := bson.M{"conversation_id": convID}
	if page.After != "" {
		if after, err := primitive.ObjectIDFromHex(page.After); err == nil {
			filter["_id"] = bson.M{"$gt": after}
		}
	}
	cur, err := s.c.Find(ctx, filter, page.IDFindOptions())
	if err != nil {
		return paging.Page[models.Message]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Message
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Message]{}, err
	}
	out := paging.Build(rows, page,
		func(m models.Message) string { return m.ID.Hex() },
		func(m models.Message) primitive.ObjectID { return m.ID })
	if out.Next != "" {
		out.Next = out.Items[len(out.Items)-1].ID.Hex()
	}
	return out, nil
}

// CountSince counts messages sent after t.
func (s *Store) CountSince(ctx context.Context, convID primitive.ObjectID, t time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"conversation_id": convID, "sent_on": bson.M{"$gt": t}})
}
