// internal/app/store/orgtasks/orgtaskstore.go
package orgtaskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("task not found")
	// ErrBadTransition is returned when a task is not in the status the
	// operation requires.
	ErrBadTransition = errors.New("task is not in a state that allows this")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("org_tasks")}
}

// Create inserts an open task.
func (s *Store) Create(ctx context.Context, t models.OrgTask) (models.OrgTask, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Title = normalize.Name(t.Title)
	t.TitleCI = text.Fold(t.Title)
	t.Status = models.OrgTaskOpen
	t.StudentProfileID = nil
	if t.MentorIDs == nil {
		t.MentorIDs = []primitive.ObjectID{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.OrgTask{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.OrgTask, error) {
	var t models.OrgTask
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.OrgTask{}, ErrNotFound
		}
		return models.OrgTask{}, err
	}
	return t, nil
}

// Update holds the editable task fields. Nil fields are left alone.
type Update struct {
	Title       *string
	Description *string
	MentorIDs   []primitive.ObjectID
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = normalize.Name(*upd.Title)
		set["title_ci"] = text.Fold(*upd.Title)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.MentorIDs != nil {
		set["mentor_ids"] = upd.MentorIDs
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrg returns the org's tasks ordered by title, optionally filtered
// by status.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.OrgTask, error) {
	filter := bson.M{"organization_id": orgID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.OrgTask
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Claim assigns an open task to a student.
func (s *Store) Claim(ctx context.Context, id, studentProfileID primitive.ObjectID) (models.OrgTask, error) {
	return s.transition(ctx, id, []string{models.OrgTaskOpen}, bson.M{
		"status":             models.OrgTaskClaimed,
		"student_profile_id": studentProfileID,
	}, nil)
}

// SubmitForReview moves a claimed task to needs_review. Only the claiming
// student may submit.
func (s *Store) SubmitForReview(ctx context.Context, id, studentProfileID primitive.ObjectID) (models.OrgTask, error) {
	return s.transition(ctx, id, []string{models.OrgTaskClaimed}, bson.M{"status": models.OrgTaskNeedsReview},
		bson.M{"student_profile_id": studentProfileID})
}

// Close finishes a claimed or reviewed task.
func (s *Store) Close(ctx context.Context, id primitive.ObjectID) (models.OrgTask, error) {
	return s.transition(ctx, id, []string{models.OrgTaskClaimed, models.OrgTaskNeedsReview}, bson.M{"status": models.OrgTaskClosed}, nil)
}

// Reopen sends a claimed or reviewed task back to open and unassigns it.
func (s *Store) Reopen(ctx context.Context, id primitive.ObjectID) (models.OrgTask, error) {
	return s.transitionUnset(ctx, id, []string{models.OrgTaskClaimed, models.OrgTaskNeedsReview})
}

func (s *Store) transition(ctx context.Context, id primitive.ObjectID, from []string, set, extra bson.M) (models.OrgTask, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	for k, v := range extra {
		filter[k] = v
	}
	set["updated_at"] = time.Now().UTC()
	return s.apply(ctx, id, filter, bson.M{"$set": set})
}

func (s *Store) transitionUnset(ctx context.Context, id primitive.ObjectID, from []string) (models.OrgTask, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	return s.apply(ctx, id, filter, bson.M{
		"$set":   bson.M{"status": models.OrgTaskOpen, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"student_profile_id": ""},
	})
}

func (s *Store) apply(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (models.OrgTask, error) {
	var t models.OrgTask
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.OrgTask{}, gerr
		}
		return models.OrgTask{}, ErrBadTransition
	}
	if err != nil {
		return models.OrgTask{}, err
	}
	return t, nil
}

// CountOpenMentoredInOrg counts non-closed tasks in orgID that list
// profileID as a mentor.
func (s *Store) CountOpenMentoredInOrg(ctx context.Context, orgID, profileID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"organization_id": orgID,
		"mentor_ids":      profileID,
		"status":          bson.M{"$ne": models.OrgTaskClosed},
	})
}
