// internal/app/system/jobs/conversations.go
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/melange/internal/app/system/mailer"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RefreshConversations recomputes participants of every auto-updating
// conversation in the program.
func (r *Runner) RefreshConversations(ctx context.Context, programKey string) (Step, error) {
	prog, err := r.program(ctx, programKey)
	if err != nil {
		return Step{}, err
	}
	st, err := r.participants.RefreshProgram(ctx, prog.ID)
	return Step{Processed: st.Added + st.Removed, Done: err == nil}, err
}

// RefreshUserConversations re-evaluates one user's membership in the
// program's conversations.
func (r *Runner) RefreshUserConversations(ctx context.Context, programKey, userKey string) (Step, error) {
	prog, err := r.program(ctx, programKey)
	if err != nil {
		return Step{}, err
	}
	userID, err := primitive.ObjectIDFromHex(userKey)
	if err != nil {
		return Step{}, fmt.Errorf("jobs: bad user key %q", userKey)
	}
	st, err := r.participants.RefreshForUser(ctx, prog.ID, userID)
	return Step{Processed: st.Added + st.Removed, Done: err == nil}, err
}

// ErrNoMailer is returned by SendMail when no SMTP sender is configured.
var ErrNoMailer = errors.New("jobs: mail is not configured")

// SendMail delivers one queued email.
func (r *Runner) SendMail(ctx context.Context, e mailer.Email) error {
	if r.mail == nil {
		r.log.Warn("dropping mail; no sender configured", zap.String("to", e.To), zap.String("subject", e.Subject))
		return ErrNoMailer
	}
	return r.mail.Send(ctx, e)
}
