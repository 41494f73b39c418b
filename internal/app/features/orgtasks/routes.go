// internal/app/features/orgtasks/routes.go
package orgtasks

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /programs/{program}/org_tasks.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/org/{org}", h.ServeList)
	r.Post("/org/{org}", h.HandleCreate)

	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.HandleUpdate)
	r.Post("/{id}/claim", h.HandleClaim)
	r.Post("/{id}/submit", h.HandleSubmit)
	r.Post("/{id}/close", h.HandleClose)
	r.Post("/{id}/reopen", h.HandleReopen)
	return r
}
