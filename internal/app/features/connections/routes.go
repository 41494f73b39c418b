// internal/app/features/connections/routes.go
package connections

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /programs/{program}/connections.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeMine)
	r.Post("/", h.HandleStartAsUser)

	r.Route("/org/{org}", func(r chi.Router) {
		r.Get("/", h.ServeForOrg)
		r.Post("/", h.HandleStartAsOrg)
		r.Post("/anonymous", h.HandleInvite)
	})

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeView)
		r.Post("/user_role", h.HandleUserRole)
		r.Post("/org_role", h.HandleOrgRole)
		r.Post("/messages", h.HandleMessage)
	})
	return r
}

// InviteRoutes mounts under /connections/anonymous. Opening an invitation
// works without a session; claiming it does not.
func InviteRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Post("/claim", h.HandleClaim)
	r.Get("/{token}", h.ServeInvitation)
	return r
}
