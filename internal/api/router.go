package api

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Bank content
	mux.HandleFunc("GET /categories", h.listCategories)
	mux.HandleFunc("GET /categories/{categoryKey}/themes", h.listThemes)
	mux.HandleFunc("GET /categories/{categoryKey}/themes/{themeID}/questions", h.listQuestions)
	mux.HandleFunc("GET /export", h.exportBank)

	// Sessions
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{sessionID}", h.getSession)
	mux.HandleFunc("DELETE /sessions/{sessionID}", h.discardSession)
	mux.HandleFunc("POST /sessions/{sessionID}/answers", h.submitAnswer)
	mux.HandleFunc("POST /sessions/{sessionID}/abandon", h.abandonSession)
	mux.HandleFunc("GET /sessions/{sessionID}/score", h.getScore)
	mux.HandleFunc("GET /sessions/{sessionID}/missed", h.getMissed)
	mux.HandleFunc("POST /sessions/{sessionID}/retry", h.retrySession)

	// History
	mux.HandleFunc("GET /users/{userID}/attempts", h.listAttempts)
	mux.HandleFunc("GET /users/{userID}/attempts/{attemptID}", h.getAttempt)
	mux.HandleFunc("GET /users/{userID}/categories/{categoryKey}/themes/{themeID}/stats", h.getThemeStats)
}
