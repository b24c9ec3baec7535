package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Discussions (SSE)
		r.Post("/discussions", h.StartDiscussion)

		// Sessions
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/sessions/{id}/summary", h.GetSessionSummary)
		r.Get("/sessions/{id}/classifications", h.ListSessionClassifications)
		r.Post("/sessions/{id}/messages", h.InjectMessage)
		r.Post("/sessions/{id}/abandon", h.AbandonSession)
		r.Post("/sessions/{id}/resume", h.ResumeSession)

		// Personas
		r.Get("/personas", h.ListPersonas)

		// Executions
		r.Get("/executions", h.ListExecutions)
		r.Get("/executions/{id}", h.GetExecution)
		r.Post("/executions/{id}/start", h.StartExecution)
		r.Post("/executions/{id}/analyze", h.AnalyzeExecution)

		// Preference profiles (nested under projects)
		r.Get("/projects/{id}/profile", h.GetPreferenceProfile)
		r.Put("/projects/{id}/profile", h.SetPreferenceProfile)
	})
}
