// internal/app/features/proposals/routes.go
package proposals

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /programs/{program}/proposals.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeMine)
	r.Post("/", h.HandleSubmit)
	r.Get("/org/{org}", h.ServeForOrg)

	r.Get("/duplicates", h.ServeDuplicates)
	r.Post("/duplicates", h.HandleStartDuplicates)
	r.Post("/accept", h.HandleAcceptProposals)

	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.HandleUpdate)
	r.Post("/{id}/withdraw", h.HandleWithdraw)
	return r
}
