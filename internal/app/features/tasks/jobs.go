// internal/app/features/tasks/jobs.go
package tasks

import (
	"context"
	"net/http"

	"github.com/dalemusser/melange/internal/app/system/jobs"
	"github.com/dalemusser/melange/internal/app/system/mailer"
)

func (h *Handler) HandleApplyDecisions(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "apply decisions", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.ApplyDecisions(ctx, form("program_key"), form("org_cursor"))
	})
}

func (h *Handler) HandleDuplicatesStart(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "duplicates start", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		err := h.Jobs.StartDuplicates(ctx, form("program_key"), form("repeat") == "yes")
		return jobs.Step{Done: err == nil}, err
	})
}

func (h *Handler) HandleDuplicatesCalculate(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "duplicates calculate", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.CalculateDuplicates(ctx, form("program_key"), form("org_cursor"))
	})
}

func (h *Handler) HandleAcceptMain(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "accept proposals", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.AcceptMain(ctx, form("program_key"), form("org_cursor"))
	})
}

func (h *Handler) HandleAcceptOrganization(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "accept organization proposals", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.AcceptOrganization(ctx, form("org_key"))
	})
}

func (h *Handler) HandleRejectOrganization(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "reject organization proposals", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.RejectOrganization(ctx, form("org_key"))
	})
}

func (h *Handler) HandleRefreshConversations(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "refresh conversations", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.RefreshConversations(ctx, form("program_key"))
	})
}

func (h *Handler) HandleRefreshUser(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "refresh user conversations", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		return h.Jobs.RefreshUserConversations(ctx, form("program_key"), form("user_key"))
	})
}

// HandleMailSend delivers one email queued with taskqueue.EnqueueMail.
func (h *Handler) HandleMailSend(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "mail send", func(ctx context.Context, form func(string) string) (jobs.Step, error) {
		err := h.Jobs.SendMail(ctx, mailer.Email{
			To:       form("to"),
			Subject:  form("subject"),
			TextBody: form("body"),
			HTMLBody: form("html"),
		})
		return jobs.Step{Processed: 1, Done: err == nil}, err
	})
}
