package api

import (
	"errors"
	"net/http"
	"time"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/id"
	"github.com/opobank/backend/internal/store"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateSessionRequest struct {
	UserID     string                   `json:"user_id"`
	Sources    []practicesession.Source `json:"sources"`
	SampleSize *int                     `json:"sample_size,omitempty"`
	Shuffle    bool                     `json:"shuffle"`
	Seed       *uint64                  `json:"seed,omitempty"`
	ExcludeIDs []string                 `json:"exclude_ids,omitempty"`
}

func (r *CreateSessionRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if len(r.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	for _, src := range r.Sources {
		if src.Category == "" || src.Theme == "" {
			return errors.New("every source needs a category and a theme")
		}
	}
	if r.SampleSize != nil && *r.SampleSize < 0 {
		return errors.New("sample_size must not be negative")
	}
	return nil
}

func (r *CreateSessionRequest) config() practicesession.SessionConfig {
	config := practicesession.DefaultConfig(r.Sources...)
	config.SampleSize = r.SampleSize
	config.Shuffle = r.Shuffle
	config.Seed = r.Seed
	config.ExcludeIDs = r.ExcludeIDs
	return config
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Selected   *int   `json:"selected"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if r.QuestionID == "" {
		return errors.New("question_id is required")
	}
	if r.Selected == nil {
		return errors.New("selected is required")
	}
	return nil
}

type SessionQuestionResponse struct {
	Ref          questionbank.Ref `json:"ref"`
	Prompt       string           `json:"prompt"`
	Options      []string         `json:"options"`
	Selected     *int             `json:"selected,omitempty"`
	Correct      *bool            `json:"correct,omitempty"`
	CorrectIndex *int             `json:"correct_index,omitempty"`
	Explanation  string           `json:"explanation,omitempty"`
}

type SessionResponse struct {
	ID        string                    `json:"id"`
	UserID    string                    `json:"user_id"`
	State     practicesession.State     `json:"state"`
	CreatedAt time.Time                 `json:"created_at"`
	Shuffled  bool                      `json:"shuffled"`
	Seed      *uint64                   `json:"seed,omitempty"`
	Current   *questionbank.Ref         `json:"current,omitempty"`
	Score     practicesession.Score     `json:"score"`
	Questions []SessionQuestionResponse `json:"questions"`
}

type SubmitAnswerResponse struct {
	Correct      bool                  `json:"correct"`
	CorrectIndex int                   `json:"correct_index"`
	Explanation  string                `json:"explanation,omitempty"`
	State        practicesession.State `json:"state"`
	Score        practicesession.Score `json:"score"`
}

type MissedResponse struct {
	Ref      questionbank.Ref      `json:"ref"`
	Question questionbank.Question `json:"question"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sessions
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.sessions.Start(r.Context(), req.UserID, req.config())
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusCreated, toSessionResponse(store.LiveSession{UserID: req.UserID, Session: session}))
}

// GET /sessions/{sessionID}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	live, err := h.sessions.Get(r.Context(), sessionID)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(live))
}

// POST /sessions/{sessionID}/answers
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.sessions.Answer(r.Context(), sessionID, req.QuestionID, *req.Selected)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, SubmitAnswerResponse{
		Correct:      result.Correct,
		CorrectIndex: result.CorrectIndex,
		Explanation:  result.Explanation,
		State:        result.State,
		Score:        result.Score,
	})
}

// POST /sessions/{sessionID}/abandon
func (h *Handler) abandonSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	score, err := h.sessions.Abandon(r.Context(), sessionID)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, score)
}

// GET /sessions/{sessionID}/score
func (h *Handler) getScore(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	score, err := h.sessions.Score(r.Context(), sessionID)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, score)
}

// GET /sessions/{sessionID}/missed
func (h *Handler) getMissed(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	refs, questions, err := h.sessions.Missed(r.Context(), sessionID)
	if h.handleError(w, err) {
		return
	}

	response := make([]MissedResponse, len(refs))
	for i := range refs {
		response[i] = MissedResponse{Ref: refs[i], Question: questions[i]}
	}
	respondJSON(w, http.StatusOK, response)
}

// POST /sessions/{sessionID}/retry
func (h *Handler) retrySession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	session, err := h.sessions.Retry(ctx, sessionID)
	if h.handleError(w, err) {
		return
	}
	live, err := h.sessions.Get(ctx, session.ID)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusCreated, toSessionResponse(live))
}

// DELETE /sessions/{sessionID}
func (h *Handler) discardSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFrom(w, r)
	if !ok {
		return
	}
	if h.handleError(w, h.sessions.Discard(r.Context(), sessionID)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionIDFrom rejects ids that cannot belong to any session with a 404.
func sessionIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.PathValue("sessionID")
	if !id.Valid(sessionID) {
		respondError(w, http.StatusNotFound, "session not found")
		return "", false
	}
	return sessionID, true
}

// toSessionResponse hides the correct option of questions not answered yet.
func toSessionResponse(live store.LiveSession) SessionResponse {
	s := live.Session
	response := SessionResponse{
		ID:        s.ID,
		UserID:    live.UserID,
		State:     s.State(),
		CreatedAt: s.CreatedAt,
		Shuffled:  s.Shuffled,
		Score:     s.Score(),
	}
	if s.Shuffled {
		seed := s.Seed
		response.Seed = &seed
	}
	if current, ok := s.Current(); ok {
		ref := current.Ref
		response.Current = &ref
	}

	questions := s.Questions()
	response.Questions = make([]SessionQuestionResponse, len(questions))
	for i, sq := range questions {
		q := SessionQuestionResponse{
			Ref:     sq.Ref,
			Prompt:  sq.Question.Prompt,
			Options: sq.Options(),
		}
		if sel, ok := sq.Selected(); ok {
			correct := sq.IsCorrect()
			correctIndex := sq.CorrectIndex()
			q.Selected = &sel
			q.Correct = &correct
			q.CorrectIndex = &correctIndex
			q.Explanation = sq.Question.Explanation
		}
		response.Questions[i] = q
	}
	return response
}
