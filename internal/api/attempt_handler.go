package api

import (
	"net/http"
	"time"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
)

type AttemptResponse struct {
	ID         string                `json:"id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Abandoned  bool                  `json:"abandoned"`
	Score      practicesession.Score `json:"score"`
}

type AttemptAnswerResponse struct {
	Ref      questionbank.Ref `json:"ref"`
	Selected *int             `json:"selected,omitempty"`
	Correct  bool             `json:"correct"`
}

type AttemptDetailResponse struct {
	AttemptResponse
	Answers []AttemptAnswerResponse `json:"answers"`
}

type ThemeStatsResponse struct {
	Category       string `json:"category"`
	Theme          string `json:"theme"`
	TotalQuestions int    `json:"total_questions"`
	Answered       int    `json:"answered"`
	Mastery        int    `json:"mastery"`
}

// GET /users/{userID}/attempts
func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.sessions.History(r.Context(), r.PathValue("userID"))
	if h.handleError(w, err) {
		return
	}

	response := make([]AttemptResponse, len(attempts))
	for i, a := range attempts {
		response[i] = AttemptResponse{
			ID:         a.ID,
			StartedAt:  a.StartedAt,
			FinishedAt: a.FinishedAt,
			Abandoned:  a.Abandoned,
			Score:      a.Score,
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /users/{userID}/attempts/{attemptID}
func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.sessions.Attempt(r.Context(), r.PathValue("userID"), r.PathValue("attemptID"))
	if h.handleError(w, err) {
		return
	}

	response := AttemptDetailResponse{
		AttemptResponse: AttemptResponse{
			ID:         attempt.ID,
			StartedAt:  attempt.StartedAt,
			FinishedAt: attempt.FinishedAt,
			Abandoned:  attempt.Abandoned,
			Score:      attempt.Score,
		},
		Answers: make([]AttemptAnswerResponse, len(attempt.Answers)),
	}
	for i, a := range attempt.Answers {
		response.Answers[i] = AttemptAnswerResponse{Ref: a.Ref, Selected: a.Selected, Correct: a.Correct}
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /users/{userID}/categories/{categoryKey}/themes/{themeID}/stats
func (h *Handler) getThemeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.ThemeStats(r.Context(),
		r.PathValue("userID"),
		r.PathValue("categoryKey"),
		r.PathValue("themeID"),
	)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, ThemeStatsResponse{
		Category:       stats.Category,
		Theme:          stats.Theme,
		TotalQuestions: stats.TotalQuestions,
		Answered:       stats.Answered,
		Mastery:        stats.Mastery,
	})
}
