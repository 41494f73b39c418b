// internal/app/store/queue/queuestore.go
package queuestore

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

var ErrNotFound = errors.New("task not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Insert stores a pending task. A zero ETA means "now".
func (s *Store) Insert(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Status = models.TaskPending
	t.Attempts = 0
	t.LeaseUntil = nil
	if t.ETA.IsZero() {
		t.ETA = now
	}
	if t.Params == nil {
		t.Params = map[string]string{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// LeaseNext atomically claims the earliest due task: a pending task whose
// ETA has passed, or a leased task whose lease expired (the dispatcher that
// held it died). It returns nil when nothing is due.
func (s *Store) LeaseNext(ctx context.Context, now time.Time, lease time.Duration) (*models.Task, error) {
	filter := bson.M{"$or": []bson.M{
		{"status": models.TaskPending, "eta": bson.M{"$lte": now}},
		{"status": models.TaskLeased, "lease_until": bson.M{"$lt": now}},
	}}
	until := now.Add(lease)
	update := bson.M{"$set": bson.M{
		"status":      models.TaskLeased,
		"lease_until": until,
		"updated_at":  now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "eta", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) setStatus(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   set,
		"$unset": bson.M{"lease_until": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDone records a successful delivery.
func (s *Store) MarkDone(ctx context.Context, id primitive.ObjectID, attempts int) error {
	return s.setStatus(ctx, id, bson.M{"status": models.TaskDone, "attempts": attempts, "last_error": ""})
}

// Retry puts the task back to pending with a new ETA.
func (s *Store) Retry(ctx context.Context, id primitive.ObjectID, attempts int, eta time.Time, lastErr string) error {
	return s.setStatus(ctx, id, bson.M{
		"status":     models.TaskPending,
		"attempts":   attempts,
		"eta":        eta,
		"last_error": lastErr,
	})
}

// MarkFailed gives up on the task.
func (s *Store) MarkFailed(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string) error {
	return s.setStatus(ctx, id, bson.M{"status": models.TaskFailed, "attempts": attempts, "last_error": lastErr})
}

// GetByID loads one task.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// ListByName returns tasks with the given name and status, oldest ETA first.
// An empty status matches any.
func (s *Store) ListByName(ctx context.Context, name, status string) ([]models.Task, error) {
	filter := bson.M{"name": name}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "eta", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus returns task counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// PurgeFinished deletes done tasks last updated before cutoff.
// Failed tasks are kept for inspection.
func (s *Store) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"status":     models.TaskDone,
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
