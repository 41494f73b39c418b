// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts Organization routes under /programs/{program}/organizations.
// Per-organization permissions are checked in the handlers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleApply)
	r.Get("/{org}", h.ServeView)
	r.Patch("/{org}", h.HandleEdit)

	// Admin-only; checked against the program scope.
	r.Post("/{org}/decision", h.HandleDecide)
	r.Post("/apply_decisions", h.HandleApplyDecisions)

	return r
}
