package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/melange/internal/app/system/normalize"
	"github.com/dalemusser/melange/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateLoginID is returned when the login ID is already taken.
	ErrDuplicateLoginID = errors.New("a user with this login ID already exists")
	errBadRole          = errors.New(`role must be "user"|"admin"`)
	errBadStatus        = errors.New(`status must be "active"|"disabled"`)
	errBadAuthMethod    = errors.New(`auth_method must be "password"|"google"`)
)

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByLoginID looks up a user by case-insensitive login ID.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"login_id_ci": text.Fold(loginID)})
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByGoogleSubject looks up a Google-authenticated user by the subject
// returned from the identity provider.
func (s *Store) GetByGoogleSubject(ctx context.Context, subject string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"auth_method": models.AuthMethodGoogle, "auth_return_id": subject})
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.LoginID == "" {
		u.LoginID = u.Email
	}
	u.LoginIDCI = text.Fold(u.LoginID)
	if u.Role == "" {
		u.Role = models.UserRoleUser
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthMethodPassword
	}

	switch u.Role {
	case models.UserRoleUser, models.UserRoleAdmin:
	default:
		return models.User{}, errBadRole
	}
	switch u.Status {
	case models.UserStatusActive, models.UserStatusDisabled:
	default:
		return models.User{}, errBadStatus
	}
	switch u.AuthMethod {
	case models.AuthMethodPassword, models.AuthMethodGoogle:
	default:
		return models.User{}, errBadAuthMethod
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateLoginID
		}
		return models.User{}, err
	}
	return u, nil
}

// HashPassword returns the bcrypt hash stored in password_hash.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether plain matches the user's stored hash.
// Users without a hash never match.
func CheckPassword(u *models.User, plain string) bool {
	if u == nil || u.PasswordHash == nil || *u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(plain)) == nil
}

// SetPassword hashes plain and stores it for the user.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, plain string) error {
	h, err := HashPassword(plain)
	if err != nil {
		return err
	}
	return s.update(ctx, id, bson.M{"password_hash": h, "auth_method": models.AuthMethodPassword})
}

// LinkGoogle records the Google subject for a user, switching them to
// Google sign-in.
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, subject string) error {
	return s.update(ctx, id, bson.M{"auth_return_id": subject, "auth_method": models.AuthMethodGoogle})
}

// SetStatus enables or disables a user.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	switch status {
	case models.UserStatusActive, models.UserStatusDisabled:
	default:
		return errBadStatus
	}
	return s.update(ctx, id, bson.M{"status": status})
}

// SetRole changes a user's site role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	switch role {
	case models.UserRoleUser, models.UserRoleAdmin:
	default:
		return errBadRole
	}
	return s.update(ctx, id, bson.M{"role": role})
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByIDs returns the users with the given IDs, sorted by folded name.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountAdmins returns the number of active site administrators.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": models.UserRoleAdmin, "status": models.UserStatusActive})
}
