// internal/app/store/programs/programstore.go
package programstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("program not found")
	ErrDuplicateSlug = errors.New("a program with this slug already exists")
	errBadKind       = errors.New(`kind must be "gsoc"|"gci"`)
	errBadStatus     = errors.New(`status must be "visible"|"invisible"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("programs")}
}

func (s *Store) Create(ctx context.Context, p models.Program) (models.Program, error) {
	p.ID = primitive.NewObjectID()
	p.Slug = normalize.Slug(p.Slug)
	if p.Slug == "" {
		p.Slug = normalize.Slug(p.Name)
	}
	if p.Kind == "" {
		p.Kind = models.ProgramKindGSoC
	}
	if p.Status == "" {
		p.Status = models.ProgramInvisible
	}
	if p.Kind != models.ProgramKindGSoC && p.Kind != models.ProgramKindGCI {
		return models.Program{}, errBadKind
	}
	if p.Status != models.ProgramVisible && p.Status != models.ProgramInvisible {
		return models.Program{}, errBadStatus
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Program{}, ErrDuplicateSlug
		}
		return models.Program{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Program, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetBySlug loads a program by its URL key.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Program, error) {
	return s.findOne(ctx, bson.M{"slug": normalize.Slug(slug)})
}

// GetByKey accepts either an ObjectID hex or a slug. Task parameters carry
// program keys in either form.
func (s *Store) GetByKey(ctx context.Context, key string) (models.Program, error) {
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		return s.GetByID(ctx, oid)
	}
	return s.GetBySlug(ctx, key)
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Program, error) {
	var p models.Program
	if err := s.c.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Program{}, ErrNotFound
		}
		return models.Program{}, err
	}
	return p, nil
}

// List returns programs ordered by slug. Invisible programs are included
// only when includeHidden is set.
func (s *Store) List(ctx context.Context, includeHidden bool) ([]models.Program, error) {
	filter := bson.M{}
	if !includeHidden {
		filter["status"] = models.ProgramVisible
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Program
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the mutable program fields. Nil fields are left alone.
type Update struct {
	Name              *string
	Status            *string
	Messages          *models.ProgramMessages
	DuplicatesVisible *bool
}

// Update applies upd and returns the names of the fields it changed.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) ([]string, error) {
	set := bson.M{}
	var fields []string
	if upd.Name != nil {
		set["name"] = normalize.Name(*upd.Name)
		fields = append(fields, "name")
	}
	if upd.Status != nil {
		if *upd.Status != models.ProgramVisible && *upd.Status != models.ProgramInvisible {
			return nil, errBadStatus
		}
		set["status"] = *upd.Status
		fields = append(fields, "status")
	}
	if upd.Messages != nil {
		set["messages"] = *upd.Messages
		fields = append(fields, "messages")
	}
	if upd.DuplicatesVisible != nil {
		set["duplicates_visible"] = *upd.DuplicatesVisible
		fields = append(fields, "duplicates_visible")
	}
	if len(set) == 0 {
		return nil, nil
	}
	set["updated_at"] = time.Now().UTC()

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return fields, nil
}
