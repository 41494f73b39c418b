// internal/app/store/duplicates/duplicatestore.go
package duplicatestore

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

// Store holds per-student duplicate records and the per-program
// calculation status.
type Store struct {
	dups   *mongo.Collection
	status *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		dups:   db.Collection("proposal_duplicates"),
		status: db.Collection("proposal_duplicates_status"),
	}
}

// Clear removes every duplicate record of the program.
func (s *Store) Clear(ctx context.Context, programID primitive.ObjectID) (int64, error) {
	res, err := s.dups.DeleteMany(ctx, bson.M{"program_id": programID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Merge adds proposals (and their organizations) to the student's record,
// creating it if needed, and recomputes is_duplicate as "more than one
// organization".
func (s *Store) Merge(ctx context.Context, programID, studentProfileID primitive.ObjectID, orgIDs, proposalIDs []primitive.ObjectID) (models.ProposalDuplicate, error) {
	filter := bson.M{"program_id": programID, "student_profile_id": studentProfileID}
	orgs := bson.A{}
	for _, id := range orgIDs {
		orgs = append(orgs, id)
	}
	props := bson.A{}
	for _, id := range proposalIDs {
		props = append(props, id)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"program_id":         programID,
			"student_profile_id": studentProfileID,
			"organization_ids":   bson.M{"$setUnion": bson.A{bson.M{"$ifNull": bson.A{"$organization_ids", bson.A{}}}, orgs}},
			"proposal_ids":       bson.M{"$setUnion": bson.A{bson.M{"$ifNull": bson.A{"$proposal_ids", bson.A{}}}, props}},
			"updated_at":         time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{
			"is_duplicate": bson.M{"$gt": bson.A{bson.M{"$size": "$organization_ids"}, 1}},
		}}},
	}
	var d models.ProposalDuplicate
	err := s.dups.FindOneAndUpdate(ctx, filter, pipeline,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&d)
	return d, err
}

// ListDuplicates returns the program's students with proposals marked in
// more than one organization. orgID, when set, keeps those involving it.
func (s *Store) ListDuplicates(ctx context.Context, programID primitive.ObjectID, orgID *primitive.ObjectID) ([]models.ProposalDuplicate, error) {
	filter := bson.M{"program_id": programID, "is_duplicate": true}
	if orgID != nil {
		filter["organization_ids"] = *orgID
	}
	cur, err := s.dups.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ProposalDuplicate
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStatus returns the calculation status; programs never calculated are
// idle.
func (s *Store) GetStatus(ctx context.Context, programID primitive.ObjectID) (models.DuplicatesStatus, error) {
	var st models.DuplicatesStatus
	err := s.status.FindOne(ctx, bson.M{"program_id": programID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DuplicatesStatus{ProgramID: programID, Status: models.DuplicatesIdle}, nil
	}
	return st, err
}

// MarkProcessing flags the calculation as running.
func (s *Store) MarkProcessing(ctx context.Context, programID primitive.ObjectID) error {
	return s.setStatus(ctx, programID, bson.M{"status": models.DuplicatesProcessing})
}

// MarkCalculated flags the calculation as finished at calculatedOn.
func (s *Store) MarkCalculated(ctx context.Context, programID primitive.ObjectID, calculatedOn time.Time) error {
	return s.setStatus(ctx, programID, bson.M{"status": models.DuplicatesIdle, "calculated_on": calculatedOn})
}

func (s *Store) setStatus(ctx context.Context, programID primitive.ObjectID, set bson.M) error {
	_, err := s.status.UpdateOne(ctx,
		bson.M{"program_id": programID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"_id": primitive.NewObjectID()}},
		options.Update().SetUpsert(true))
	return err
}
