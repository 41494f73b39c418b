// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("project not found")
	// ErrAlreadyAccepted is returned when a project already exists for the
	// proposal.
	ErrAlreadyAccepted = errors.New("proposal already has a project")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// CreateFromProposal creates the accepted project for a proposal. There is
// at most one project per proposal.
func (s *Store) CreateFromProposal(ctx context.Context, p models.Proposal) (models.Project, error) {
	now := time.Now().UTC()
	mentors := p.MentorIDs
	if mentors == nil {
		mentors = []primitive.ObjectID{}
	}
	proj := models.Project{
		ID:               primitive.NewObjectID(),
		ProgramID:        p.ProgramID,
		OrganizationID:   p.OrganizationID,
		StudentProfileID: p.StudentProfileID,
		ProposalID:       p.ID,
		Title:            p.Title,
		Abstract:         p.Abstract,
		MentorIDs:        mentors,
		Status:           models.ProjectAccepted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.c.InsertOne(ctx, proj); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, ErrAlreadyAccepted
		}
		return models.Project{}, err
	}
	return proj, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// ListPage pages a program's projects, optionally for one organization,
// in creation order.
func (s *Store) ListPage(ctx context.Context, programID primitive.ObjectID, orgID *primitive.ObjectID, page paging.Request) (paging.Page[models.Project], error) {
	base := bson.M{"program_id": programID}
	if orgID != nil {
		base["organization_id"] = *orgID
	}
	if page.After != "" {
		if after, err := primitive.ObjectIDFromHex(page.After); err == nil {
			base["_id"] = bson.M{"$gt": after}
		}
	}
	cur, err := s.c.Find(ctx, base, page.IDFindOptions())
	if err != nil {
		return paging.Page[models.Project]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Project
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Project]{}, err
	}
	out := paging.Build(rows, page,
		func(p models.Project) string { return p.ID.Hex() },
		func(p models.Project) primitive.ObjectID { return p.ID })
	if out.Next != "" {
		out.Next = out.Items[len(out.Items)-1].ID.Hex()
	}
	return out, nil
}

// CountMentoredInOrg counts projects in orgID that list profileID as a mentor.
func (s *Store) CountMentoredInOrg(ctx context.Context, orgID, profileID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"organization_id": orgID, "mentor_ids": profileID})
}

// CountByProgram returns the number of projects in a program.
func (s *Store) CountByProgram(ctx context.Context, programID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"program_id": programID})
}
