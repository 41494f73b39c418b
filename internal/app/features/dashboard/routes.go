// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the personal dashboard at /dashboard.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
	})
	return r
}

// ProgramRoutes mounts the admin summary under
// /programs/{program}/dashboard.
func ProgramRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeProgram)
	return r
}
