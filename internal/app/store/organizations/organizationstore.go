// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/app/system/paging"
	"github.com/dalemusser/melange/internal/app/system/search"
	"github.com/dalemusser/melange/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound              = errors.New("organization not found")
	ErrDuplicateOrganization = errors.New("an organization with this id already exists in the program")
	// ErrDecisionClosed is returned when a decision is attempted on an
	// organization whose admission result was already published.
	ErrDecisionClosed = errors.New("organization admission is already decided")
	errBadStatus      = errors.New("invalid organization status")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Create inserts an organization. New organizations start in applying.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.Name = normalize.Name(org.Name)
	org.NameCI = text.Fold(org.Name)
	org.OrgID = normalize.Slug(org.OrgID)
	if org.OrgID == "" {
		org.OrgID = normalize.Slug(org.Name)
	}
	org.ContactEmail = normalize.Email(org.ContactEmail)
	if org.Status == "" {
		org.Status = models.OrgStatusApplying
	}
	if !ValidStatus(org.Status) {
		return models.Organization{}, errBadStatus
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

// ValidStatus reports whether st is a known admission status.
func ValidStatus(st string) bool {
	switch st {
	case models.OrgStatusApplying, models.OrgStatusPreAccepted, models.OrgStatusPreRejected,
		models.OrgStatusAccepted, models.OrgStatusRejected:
		return true
	}
	return false
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByOrgID loads an organization by its slug within a program.
func (s *Store) GetByOrgID(ctx context.Context, programID primitive.ObjectID, orgID string) (models.Organization, error) {
	return s.findOne(ctx, bson.M{"program_id": programID, "org_id": normalize.Slug(orgID)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, filter).Decode(&org); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Organization{}, ErrNotFound
		}
		return models.Organization{}, err
	}
	return org, nil
}

// GetByIDs loads multiple organizations by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
}

// Update holds the fields an org admin may edit. Empty strings are ignored.
type Update struct {
	Name           string
	ContactEmail   string
	Description    string
	SlotAllocation *int
}

// Update modifies an organization's mutable fields and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != "" {
		set["name"] = normalize.Name(upd.Name)
		set["name_ci"] = text.Fold(upd.Name)
	}
	if upd.ContactEmail != "" {
		set["contact_email"] = normalize.Email(upd.ContactEmail)
	}
	if upd.Description != "" {
		set["description"] = upd.Description
	}
	if upd.SlotAllocation != nil {
		set["slot_allocation"] = *upd.SlotAllocation
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

// Decide records an admin's pre-decision (pre_accepted or pre_rejected).
// Decisions can be changed until the apply-decisions job publishes them.
func (s *Store) Decide(ctx context.Context, id primitive.ObjectID, status string) (models.Organization, error) {
	if status != models.OrgStatusPreAccepted && status != models.OrgStatusPreRejected && status != models.OrgStatusApplying {
		return models.Organization{}, errBadStatus
	}
	open := []string{models.OrgStatusApplying, models.OrgStatusPreAccepted, models.OrgStatusPreRejected}
	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": open}},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.Organization{}, gerr
		}
		return models.Organization{}, ErrDecisionClosed
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// PublishDecision moves pre_accepted to accepted and pre_rejected to
// rejected. It returns the new status and whether anything changed;
// organizations in any other status are left alone.
func (s *Store) PublishDecision(ctx context.Context, id primitive.ObjectID) (string, bool, error) {
	for _, step := range [][2]string{
		{models.OrgStatusPreAccepted, models.OrgStatusAccepted},
		{models.OrgStatusPreRejected, models.OrgStatusRejected},
	} {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "status": step[0]},
			bson.M{"$set": bson.M{"status": step[1], "updated_at": time.Now().UTC()}})
		if err != nil {
			return "", false, err
		}
		if res.ModifiedCount == 1 {
			return step[1], true, nil
		}
	}
	return "", false, nil
}

// ListFilter narrows ListPage.
type ListFilter struct {
	ProgramID primitive.ObjectID
	Status    string // empty = any
	Query     string // name prefix
}

// ListPage returns one keyset page of a program's organizations ordered by
// folded name.
func (s *Store) ListPage(ctx context.Context, f ListFilter, page paging.Request) (paging.Page[models.Organization], error) {
	base := bson.M{"program_id": f.ProgramID}
	if st := normalize.Filter(f.Status); st != "" {
		base["status"] = st
	}
	filter := page.Filter(search.Merge(base, search.Prefix("name_ci", f.Query)), "name_ci")
	rows, err := s.Find(ctx, filter, page.FindOptions("name_ci"))
	if err != nil {
		return paging.Page[models.Organization]{}, err
	}
	return paging.Build(rows, page,
		func(o models.Organization) string { return o.NameCI },
		func(o models.Organization) primitive.ObjectID { return o.ID }), nil
}

// BatchAfter returns up to limit organizations of the program in the given
// statuses with _id greater than after, ordered by _id. Batch jobs resume
// from the last _id they processed.
func (s *Store) BatchAfter(ctx context.Context, programID primitive.ObjectID, statuses []string, after primitive.ObjectID, limit int) ([]models.Organization, error) {
	filter := bson.M{"program_id": programID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	if !after.IsZero() {
		filter["_id"] = bson.M{"$gt": after}
	}
	return s.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)))
}

// CountByStatus returns the number of organizations per status in a program.
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

// Find returns organizations matching the given filter with optional find options.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}
