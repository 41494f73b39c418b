// internal/app/features/conversations/routes.go
package conversations

import (
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /programs/{program}/conversations.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/unread", h.ServeUnread)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeView)
		r.Get("/messages", h.ServeMessages)
		r.Post("/messages", h.HandlePost)
		r.Post("/read", h.HandleRead)
		r.Put("/notifications", h.HandleNotifications)
	})
	return r
}
