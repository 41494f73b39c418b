// Package participants keeps the conversation_users rows of a conversation
// in step with its recipient criteria.
package participants

import (
	"context"
	"errors"
	"sync"

	conversationstore "github.com/dalemusser/melange/internal/app/store/conversations"
	conversationuserstore "github.com/dalemusser/melange/internal/app/store/conversationusers"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/domain/membership"
	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds RefreshProgram's parallel refreshes.
const DefaultConcurrency = 4

// Stats counts participant rows added and removed.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

func (s *Stats) add(o Stats) {
	s.Added += o.Added
	s.Removed += o.Removed
}

// Service refreshes conversation participants.
type Service struct {
	db          *mongo.Database
	log         *zap.Logger
	concurrency int
}

// New creates a Service. concurrency <= 0 uses DefaultConcurrency.
func New(db *mongo.Database, logger *zap.Logger, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{db: db, log: logger, concurrency: concurrency}
}

// Refresh reconciles one conversation's participants.
func (s *Service) Refresh(ctx context.Context, conversationID primitive.ObjectID) (Stats, error) {
	conv, err := conversationstore.New(s.db).GetByID(ctx, conversationID)
	if err != nil {
		return Stats{}, err
	}
	return s.refresh(ctx, conv)
}

func (s *Service) refresh(ctx context.Context, conv models.Conversation) (Stats, error) {
	var st Stats
	users := conversationuserstore.New(s.db)
	profiles := profilestore.New(s.db)

	ensure := func(userID primitive.ObjectID) error {
		created, err := users.Ensure(ctx, conv, userID)
		if created {
			st.Added++
		}
		return err
	}

	if !conv.AutoUpdateUsers {
		return st, ensure(conv.CreatorID)
	}

	if conv.RecipientsType != models.RecipientsUser {
		current, err := users.UserIDs(ctx, conv.ID)
		if err != nil {
			return st, err
		}
		byUser := map[primitive.ObjectID]*models.Profile{}
		if len(current) > 0 {
			ps, err := profiles.Find(ctx, bson.M{"program_id": conv.ProgramID, "user_id": bson.M{"$in": current}})
			if err != nil {
				return st, err
			}
			for i := range ps {
				byUser[ps[i].UserID] = &ps[i]
			}
		}
		var stale []primitive.ObjectID
		for _, uid := range current {
			if !membership.Belongs(conv, uid, byUser[uid], true) {
				stale = append(stale, uid)
			}
		}
		n, err := users.Remove(ctx, conv.ID, stale)
		if err != nil {
			return st, err
		}
		st.Removed = int(n)

		if filter := membership.ProfileFilter(conv); filter != nil {
			matching, err := profiles.Find(ctx, bson.M(filter))
			if err != nil {
				return st, err
			}
			for _, p := range matching {
				if err := ensure(p.UserID); err != nil {
					return st, err
				}
			}
		}
	}

	if err := ensure(conv.CreatorID); err != nil {
		return st, err
	}
	return st, nil
}

// Seed adds the first participants of a new conversation: every profile
// matching its criteria, the listed users, and the creator. Unlike Refresh
// it also fills conversations whose membership is frozen.
func (s *Service) Seed(ctx context.Context, conv models.Conversation, userIDs []primitive.ObjectID) (Stats, error) {
	var st Stats
	users := conversationuserstore.New(s.db)
	add := func(userID primitive.ObjectID) error {
		created, err := users.Ensure(ctx, conv, userID)
		if created {
			st.Added++
		}
		return err
	}

	if filter := membership.ProfileFilter(conv); filter != nil {
		matching, err := profilestore.New(s.db).Find(ctx, bson.M(filter))
		if err != nil {
			return st, err
		}
		for _, p := range matching {
			if err := add(p.UserID); err != nil {
				return st, err
			}
		}
	}
	for _, id := range userIDs {
		if err := add(id); err != nil {
			return st, err
		}
	}
	return st, add(conv.CreatorID)
}

// RefreshForUser re-evaluates every auto-updating conversation of the
// program for one user, after that user's roles changed.
func (s *Service) RefreshForUser(ctx context.Context, programID, userID primitive.ObjectID) (Stats, error) {
	var st Stats
	convs, err := conversationstore.New(s.db).ListByProgram(ctx, programID, true)
	if err != nil {
		return st, err
	}

	var profile *models.Profile
	p, err := profilestore.New(s.db).GetByUserProgram(ctx, userID, programID)
	switch {
	case err == nil:
		profile = &p
	case errors.Is(err, profilestore.ErrNotFound):
	default:
		return st, err
	}

	users := conversationuserstore.New(s.db)
	for _, conv := range convs {
		if conv.RecipientsType == models.RecipientsUser {
			continue
		}
		if membership.Belongs(conv, userID, profile, true) {
			created, err := users.Ensure(ctx, conv, userID)
			if err != nil {
				return st, err
			}
			if created {
				st.Added++
			}
			continue
		}
		n, err := users.Remove(ctx, conv.ID, []primitive.ObjectID{userID})
		if err != nil {
			return st, err
		}
		st.Removed += int(n)
	}
	return st, nil
}

// RefreshProgram refreshes every conversation of the program, a bounded
// number at a time.
func (s *Service) RefreshProgram(ctx context.Context, programID primitive.ObjectID) (Stats, error) {
	convs, err := conversationstore.New(s.db).ListByProgram(ctx, programID, false)
	if err != nil {
		return Stats{}, err
	}

	var (
		mu    sync.Mutex
		total Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, conv := range convs {
		g.Go(func() error {
			st, err := s.refresh(gctx, conv)
			mu.Lock()
			total.add(st)
			mu.Unlock()
			if err != nil {
				s.log.Warn("conversation refresh failed",
					zap.String("conversation_id", conv.ID.Hex()), zap.Error(err))
			}
			return err
		})
	}
	err = g.Wait()
	s.log.Info("conversations refreshed",
		zap.String("program_id", programID.Hex()),
		zap.Int("conversations", len(convs)),
		zap.Int("added", total.Added),
		zap.Int("removed", total.Removed))
	return total, err
}

// SubscriberEmails returns the addresses of participants who want mail for
// the conversation, excluding the author.
func (s *Service) SubscriberEmails(ctx context.Context, conversationID, exclude primitive.ObjectID) ([]string, error) {
	ids, err := conversationuserstore.New(s.db).Subscribers(ctx, conversationID, exclude)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	us, err := userstore.New(s.db).ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(us))
	for _, u := range us {
		if u.Email != "" && u.Status == models.UserStatusActive {
			out = append(out, u.Email)
		}
	}
	return out, nil
}
