package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"langtutor/internal/ingest"
	"langtutor/internal/models"
	"langtutor/internal/repo"
	"langtutor/internal/services/dictionary"
	"langtutor/internal/services/flashcard"
	"langtutor/internal/services/llm"
	"langtutor/internal/services/news"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 60 * time.Second
)

// Handler serves the tutor API.
type Handler struct {
	registry   *llm.Registry
	news       *news.NewsService
	flashcards *flashcard.Service
	dictionary *dictionary.Service
	loader     *ingest.Loader
}

func NewHandler(registry *llm.Registry, newsService *news.NewsService, flashcards *flashcard.Service,
	dict *dictionary.Service, loader *ingest.Loader) *Handler {
	return &Handler{
		registry:   registry,
		news:       newsService,
		flashcards: flashcards,
		dictionary: dict,
		loader:     loader,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		// Streams stay open as long as the model keeps talking.
		r.Post("/chat/stream", h.ChatStream)
		r.Get("/chat/ws", h.ChatWS)
		r.Post("/roleplay/start", h.RoleplayStart)
		r.Post("/roleplay/turn", h.RoleplayTurn)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Get("/models", h.ListModels)
			r.Get("/models/{model}/status", h.ModelStatus)
			r.Post("/translate", h.Translate)
			r.Post("/enrich", h.Enrich)

			r.Post("/flashcards/deck", h.Deck)
			r.Post("/flashcards/answer", h.Answer)
			r.Post("/flashcards/score", h.Score)

			r.Get("/roleplay/scenarios", h.Scenarios)

			r.Get("/news", h.News)

			r.Get("/vocabulary", h.ListVocabulary)
			r.Post("/vocabulary", h.AddVocabulary)
			r.Get("/vocabulary/export", h.ExportVocabulary)
			r.Post("/vocabulary/import", h.ImportVocabulary)
			r.Put("/vocabulary/{id}", h.UpdateVocabulary)
			r.Delete("/vocabulary/{id}", h.DeleteVocabulary)
		})
	})
}

// providerRequest is embedded by every request that talks to a model.
type providerRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (h *Handler) provider(w http.ResponseWriter, pr providerRequest) (llm.Provider, string, bool) {
	p, model, err := h.registry.Resolve(pr.Provider, pr.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, err.Error())
		return nil, "", false
	}
	return p, model, true
}

// ListModels lists models installed on the local server.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	ollama, ok := h.registry.Ollama()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"provider": "ollama", "models": []string{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider": "ollama", "models": ollama.ListModels(r.Context())})
}

// ModelStatus probes whether a local model answers.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	loaded := false
	if ollama, ok := h.registry.Ollama(); ok {
		loaded = ollama.CheckModelLoaded(r.Context(), model)
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": model, "loaded": loaded})
}

type translateRequest struct {
	providerRequest
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
}

func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "text is required")
		return
	}
	p, model, ok := h.provider(w, req.providerRequest)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"translation": p.Translate(r.Context(), model, req.Text, req.SourceLanguage),
	})
}

type enrichRequest struct {
	providerRequest
	Word     string `json:"word"`
	Language string `json:"language"`
}

// Enrich suggests translation, part of speech and notes for a new word.
func (h *Handler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Word) == "" || strings.TrimSpace(req.Language) == "" {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "word and language are required")
		return
	}
	p, model, ok := h.provider(w, req.providerRequest)
	if !ok {
		return
	}
	s, err := h.dictionary.Suggest(r.Context(), p, model, strings.TrimSpace(req.Word), req.Language)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type deckRequest struct {
	providerRequest
	Source   string `json:"source"`
	Language string `json:"language"`
	Count    int    `json:"count"`
}

func (h *Handler) Deck(w http.ResponseWriter, r *http.Request) {
	var req deckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Language == "" || req.Count <= 0 || req.Count > 50 {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "language and a count between 1 and 50 are required")
		return
	}

	switch models.Source(req.Source) {
	case models.SourceDatabase:
		res, err := h.flashcards.FromVocabulary(r.Context(), req.Language, req.Count)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case models.SourceGenerated, "":
		p, model, ok := h.provider(w, req.providerRequest)
		if !ok {
			return
		}
		res := h.flashcards.Generate(r.Context(), p, model, req.Language, req.Count)
		if !res.OK() {
			writeFailure(w, res.Failure)
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "source must be database or generated")
	}
}

type answerRequest struct {
	VocabID  int64  `json:"vocab_id"`
	Expected string `json:"expected"`
	Answer   string `json:"answer"`
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VocabID <= 0 && req.Expected == "" {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "vocab_id or expected is required")
		return
	}
	res, err := h.flashcards.Answer(r.Context(), req.VocabID, req.Expected, req.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score int `json:"score"`
		Total int `json:"total"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Total <= 0 || req.Score < 0 || req.Score > req.Total {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "score must be between 0 and total")
		return
	}
	percent, feedback := flashcard.Grade(req.Score, req.Total)
	writeJSON(w, http.StatusOK, map[string]any{
		"score": req.Score, "total": req.Total, "percent": percent, "feedback": feedback,
	})
}

// News loads the headline batch for a language and filters it by category.
func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	language := q.Get("language")
	if language == "" {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "language is required")
		return
	}

	// A named provider must exist. Without one the default is used when
	// registered, and headlines still load from the feed or cache otherwise.
	var p llm.Provider
	model := ""
	pr := providerRequest{Provider: q.Get("provider"), Model: q.Get("model")}
	if pr.Provider != "" {
		var ok bool
		if p, model, ok = h.provider(w, pr); !ok {
			return
		}
	} else if resolved, m, err := h.registry.Resolve("", pr.Model); err == nil {
		p, model = resolved, m
	}

	res := h.news.LoadHeadlines(r.Context(), p, model, language)
	if !res.OK() {
		writeFailure(w, res.Failure)
		return
	}

	category := q.Get("category")
	if category == "" {
		category = news.CategoryAll
	}
	filtered := news.FilterByCategory(res.Value, category)
	writeJSON(w, http.StatusOK, news.HeadlinesResponse{
		Headlines:  filtered,
		Total:      len(filtered),
		Source:     res.Source,
		Debug:      res.Debug,
		Categories: res.Categories,
		Category:   category,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, news.NewErrorResponse(code, message))
}

// writeFailure reports a client-layer failure with its diagnostics. A
// missing credential is a configuration problem, everything else an
// upstream one.
func writeFailure(w http.ResponseWriter, f *models.Failure) {
	status := http.StatusBadGateway
	if f.Kind == models.ErrNoAPIKey {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, news.NewFailureResponse(f))
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, news.ErrCodeNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return http.StatusConflict, news.ErrCodeConflict
	case errors.Is(err, dictionary.ErrInvalid), errors.Is(err, flashcard.ErrNotEnoughWords):
		return http.StatusBadRequest, news.ErrCodeValidation
	}
	return http.StatusInternalServerError, news.ErrCodeInternal
}
