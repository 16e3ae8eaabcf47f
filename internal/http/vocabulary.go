package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"langtutor/internal/models"
	"langtutor/internal/services/dictionary"
	"langtutor/internal/services/news"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type vocabularyListResponse struct {
	Words []models.Vocabulary `json:"words"`
	Stats dictionary.Stats    `json:"stats"`
}

func parseQuery(r *http.Request) (dictionary.Query, error) {
	q := r.URL.Query()
	sort, err := dictionary.ParseSort(q.Get("sort"))
	if err != nil {
		return dictionary.Query{}, err
	}
	return dictionary.Query{
		Language: q.Get("language"),
		Search:   q.Get("search"),
		Sort:     sort,
	}, nil
}

func (h *Handler) ListVocabulary(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, err.Error())
		return
	}
	words, stats, err := h.dictionary.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if words == nil {
		words = []models.Vocabulary{}
	}
	writeJSON(w, http.StatusOK, vocabularyListResponse{Words: words, Stats: stats})
}

type vocabularyRequest struct {
	Word            string  `json:"word"`
	Translation     string  `json:"translation"`
	Language        string  `json:"language"`
	PartOfSpeech    string  `json:"part_of_speech"`
	ExampleSentence *string `json:"example_sentence"`
	Notes           *string `json:"notes"`
}

func (req vocabularyRequest) vocabulary() models.Vocabulary {
	return models.Vocabulary{
		Word:            req.Word,
		Translation:     req.Translation,
		Language:        req.Language,
		PartOfSpeech:    req.PartOfSpeech,
		ExampleSentence: req.ExampleSentence,
		Notes:           req.Notes,
	}
}

func (h *Handler) AddVocabulary(w http.ResponseWriter, r *http.Request) {
	var req vocabularyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.dictionary.Add(r.Context(), req.vocabulary())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) UpdateVocabulary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req vocabularyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := req.vocabulary()
	v.ID = id
	if err := h.dictionary.Update(r.Context(), v); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "updated": true})
}

func (h *Handler) DeleteVocabulary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.dictionary.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportVocabulary downloads the filtered listing as a workbook.
func (h *Handler) ExportVocabulary(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, err.Error())
		return
	}
	filename := "vocabulary_" + time.Now().Format("20060102_150405") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := h.dictionary.Export(r.Context(), w, q); err != nil {
		// Headers may already be out; log only.
		log.Ctx(r.Context()).Error().Err(err).Msg("Vocabulary export failed")
	}
}

// ImportVocabulary loads a JSON array of entries from the request body.
func (h *Handler) ImportVocabulary(w http.ResponseWriter, r *http.Request) {
	res, err := h.loader.LoadJSON(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "invalid id")
		return 0, false
	}
	return id, true
}
