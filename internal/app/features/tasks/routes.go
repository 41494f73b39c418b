// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /tasks. Every endpoint requires a dispatcher token.
func Routes(h *Handler, signer *taskqueue.Signer) chi.Router {
	r := chi.NewRouter()
	r.Use(signer.RequireTaskToken)

	r.Post("/org_app/apply_decisions", h.HandleApplyDecisions)
	r.Post("/proposal_duplicates/start", h.HandleDuplicatesStart)
	r.Post("/proposal_duplicates/calculate", h.HandleDuplicatesCalculate)
	r.Post("/accept_proposals/main", h.HandleAcceptMain)
	r.Post("/accept_proposals/accept", h.HandleAcceptOrganization)
	r.Post("/accept_proposals/reject", h.HandleRejectOrganization)
	r.Post("/conversations/refresh", h.HandleRefreshConversations)
	r.Post("/conversations/refresh_user", h.HandleRefreshUser)
	r.Post("/mail/send", h.HandleMailSend)
	return r
}
