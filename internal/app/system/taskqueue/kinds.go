package taskqueue

import (
	"context"
	"time"

	"github.com/dalemusser/melange/internal/app/system/mailer"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind names one /tasks endpoint.
type Kind struct {
	Name string
	URL  string
}

// Batch job and notification endpoints.
var (
	ApplyDecisions          = Kind{"org_app_apply_decisions", "/tasks/org_app/apply_decisions"}
	DuplicatesStart         = Kind{"proposal_duplicates_start", "/tasks/proposal_duplicates/start"}
	DuplicatesCalculate     = Kind{"proposal_duplicates_calculate", "/tasks/proposal_duplicates/calculate"}
	AcceptProposalsMain     = Kind{"accept_proposals_main", "/tasks/accept_proposals/main"}
	AcceptProposalsAccept   = Kind{"accept_proposals_accept", "/tasks/accept_proposals/accept"}
	AcceptProposalsReject   = Kind{"accept_proposals_reject", "/tasks/accept_proposals/reject"}
	ConversationsRefresh    = Kind{"conversations_refresh", "/tasks/conversations/refresh"}
	ConversationsRefreshUsr = Kind{"conversations_refresh_user", "/tasks/conversations/refresh_user"}
	MailSend                = Kind{"mail_send", "/tasks/mail/send"}
)

// Kinds lists every known task kind.
func Kinds() []Kind {
	return []Kind{
		ApplyDecisions, DuplicatesStart, DuplicatesCalculate,
		AcceptProposalsMain, AcceptProposalsAccept, AcceptProposalsReject,
		ConversationsRefresh, ConversationsRefreshUsr, MailSend,
	}
}

// KindByName looks up a kind by its task name.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// Enqueue adds a task of this kind. A zero eta runs it on the next poll.
func (k Kind) Enqueue(ctx context.Context, q Enqueuer, params map[string]string, eta time.Time) error {
	return q.Enqueue(ctx, k.Name, k.URL, params, eta)
}

// EnqueueMail queues one email for the mail/send endpoint. Mail with no
// recipient is dropped.
func EnqueueMail(ctx context.Context, q Enqueuer, e mailer.Email) error {
	if e.To == "" {
		return nil
	}
	params := map[string]string{
		"to":      e.To,
		"subject": e.Subject,
		"body":    e.TextBody,
	}
	if e.HTMLBody != "" {
		params["html"] = e.HTMLBody
	}
	return MailSend.Enqueue(ctx, q, params, time.Time{})
}

// EnqueueRefreshUser queues a participant refresh of one user's
// conversations in a program.
func EnqueueRefreshUser(ctx context.Context, q Enqueuer, programID, userID primitive.ObjectID) error {
	return ConversationsRefreshUsr.Enqueue(ctx, q, map[string]string{
		"program_key": programID.Hex(),
		"user_key":    userID.Hex(),
	}, time.Time{})
}
