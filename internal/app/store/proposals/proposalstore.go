// internal/app/store/proposals/proposalstore.go
package proposalstore

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
	ErrNotFound  = errors.New("proposal not found")
	errBadStatus = errors.New("invalid proposal status")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("proposals")}
}

// Create inserts a pending proposal.
func (s *Store) Create(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Status = models.ProposalPending
	p.AcceptAsProject = false
	if p.MentorIDs == nil {
		p.MentorIDs = []primitive.ObjectID{}
	}
	if p.PossibleMentorIDs == nil {
		p.PossibleMentorIDs = []primitive.ObjectID{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Proposal{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Proposal, error) {
	var p models.Proposal
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Proposal{}, ErrNotFound
		}
		return models.Proposal{}, err
	}
	return p, nil
}

// ListByOrg returns an organization's proposals, optionally filtered by
// status, highest score first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.Proposal, error) {
	filter := bson.M{"organization_id": orgID}
	if status != "" {
		filter["status"] = status
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}))
}

// ListByStudent returns a student's proposals in a program.
func (s *Store) ListByStudent(ctx context.Context, programID, studentProfileID primitive.ObjectID) ([]models.Proposal, error) {
	return s.find(ctx, bson.M{"program_id": programID, "student_profile_id": studentProfileID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// ListToAccept returns the org's pending proposals marked accept_as_project.
func (s *Store) ListToAccept(ctx context.Context, orgID primitive.ObjectID) ([]models.Proposal, error) {
	return s.find(ctx, bson.M{
		"organization_id":   orgID,
		"status":            models.ProposalPending,
		"accept_as_project": true,
	}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// ListMarkedForOrgs returns pending proposals marked accept_as_project in
// any of the given organizations.
func (s *Store) ListMarkedForOrgs(ctx context.Context, orgIDs []primitive.ObjectID) ([]models.Proposal, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{
		"organization_id":   bson.M{"$in": orgIDs},
		"status":            models.ProposalPending,
		"accept_as_project": true,
	})
}

// ListPending returns every pending proposal of the organization.
func (s *Store) ListPending(ctx context.Context, orgID primitive.ObjectID) ([]models.Proposal, error) {
	return s.find(ctx, bson.M{"organization_id": orgID, "status": models.ProposalPending})
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Proposal, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Proposal
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetAcceptAsProject marks or unmarks a pending proposal for acceptance.
func (s *Store) SetAcceptAsProject(ctx context.Context, id primitive.ObjectID, accept bool) error {
	return s.update(ctx, bson.M{"_id": id, "status": models.ProposalPending}, bson.M{"accept_as_project": accept})
}

// SetMentors replaces the assigned mentors.
func (s *Store) SetMentors(ctx context.Context, id primitive.ObjectID, mentorIDs []primitive.ObjectID) error {
	if mentorIDs == nil {
		mentorIDs = []primitive.ObjectID{}
	}
	return s.update(ctx, bson.M{"_id": id}, bson.M{"mentor_ids": mentorIDs})
}

// SetScore stores the org's score for ranking.
func (s *Store) SetScore(ctx context.Context, id primitive.ObjectID, score int) error {
	return s.update(ctx, bson.M{"_id": id}, bson.M{"score": score})
}

// SetStatus changes a proposal's status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	switch status {
	case models.ProposalPending, models.ProposalAccepted, models.ProposalRejected,
		models.ProposalWithdrawn, models.ProposalIgnored:
	default:
		return errBadStatus
	}
	return s.update(ctx, bson.M{"_id": id}, bson.M{"status": status})
}

func (s *Store) update(ctx context.Context, filter, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMentoredInOrg counts proposals in orgID that list profileID as a mentor.
func (s *Store) CountMentoredInOrg(ctx context.Context, orgID, profileID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"organization_id": orgID, "mentor_ids": profileID})
}

// CountByStatus returns the number of proposals per status in a program.
func (s *Store) CountByStatus(ctx context.Context, programID primitive.ObjectID) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"program_id": programID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}
