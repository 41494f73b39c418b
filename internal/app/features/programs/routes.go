// internal/app/features/programs/routes.go
package programs

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts program routes under /programs. Program-scoped features
// mount beneath /programs/{program}.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{program}", h.ServeView)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole("admin"))
		pr.Post("/", h.HandleCreate)
		pr.Patch("/{program}", h.HandleUpdate)
	})

	return r
}
