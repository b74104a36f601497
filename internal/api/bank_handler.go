package api

import (
	"bytes"
	"net/http"

	"github.com/opobank/backend/internal/bankfile"
	"github.com/opobank/backend/internal/domain/questionbank"
)

// ── Response types ──────────────────────────────────────────────────────────

type CategoryResponse struct {
	Key    string `json:"key"`
	Themes int    `json:"themes"`
}

type ThemeResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// QuestionResponse never carries the correct option; that is only revealed
// after answering.
type QuestionResponse struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /categories
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	response := make([]CategoryResponse, 0)
	for key := range h.repo.Categories() {
		themes, err := h.repo.Themes(key)
		if h.handleError(w, err) {
			return
		}
		response = append(response, CategoryResponse{Key: key, Themes: len(themes)})
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /categories/{categoryKey}/themes
func (h *Handler) listThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.repo.Themes(r.PathValue("categoryKey"))
	if h.handleError(w, err) {
		return
	}

	response := make([]ThemeResponse, len(themes))
	for i, t := range themes {
		response[i] = ThemeResponse{ID: t.ID, Name: t.Name, QuestionCount: t.QuestionCount}
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /categories/{categoryKey}/themes/{themeID}/questions
func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.repo.Questions(r.PathValue("categoryKey"), r.PathValue("themeID"))
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, toQuestionResponses(questions))
}

// GET /export?format=json|yaml
func (h *Handler) exportBank(w http.ResponseWriter, r *http.Request) {
	format := bankfile.FormatJSON
	contentType := "application/json"
	if r.URL.Query().Get("format") == string(bankfile.FormatYAML) {
		format = bankfile.FormatYAML
		contentType = "application/yaml"
	}

	doc, err := bankfile.Export(h.repo)
	if h.handleError(w, err) {
		return
	}

	var buf bytes.Buffer
	if err := bankfile.Encode(&buf, doc, format); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=opobank-export."+string(format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func toQuestionResponses(questions []questionbank.Question) []QuestionResponse {
	response := make([]QuestionResponse, len(questions))
	for i, q := range questions {
		response[i] = QuestionResponse{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
	}
	return response
}
