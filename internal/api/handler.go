// Package api serves the scoring service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/service"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/logger"
)

// Config bounds request handling.
type Config struct {
	DefaultTopK  int
	MaxTopK      int
	MaxBodyBytes int64
	Tokenizer    tokenizer.Options
}

// Handler serves the scoring API.
type Handler struct {
	svc    *service.Service
	cache  *cache.ScoreCache
	cfg    Config
	logger *slog.Logger
}

// New creates a Handler. scoreCache may be nil when caching is disabled.
func New(svc *service.Service, scoreCache *cache.ScoreCache, cfg Config) *Handler {
	return &Handler{
		svc:    svc,
		cache:  scoreCache,
		cfg:    cfg,
		logger: slog.Default().With("component", "api-handler"),
	}
}

type scoreRequest struct {
	Documents []ingest.DocumentEvent `json:"documents"`
	TopK      *int                   `json:"top_k,omitempty"`
}

type scoreResponse struct {
	*service.Result
	Top map[string][]tfidf.Score `json:"top,omitempty"`
}

// Score scores the corpus in the request body.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if len(req.Documents) == 0 {
		h.writeErr(w, r, apperrors.Invalid("documents must not be empty"))
		return
	}
	// Scoring persists and notifies, so the request is fully validated first.
	var k int
	if req.TopK != nil {
		var err error
		if k, err = h.clampTopK(*req.TopK); err != nil {
			h.writeErr(w, r, err)
			return
		}
	}
	corpus := make(tfidf.Corpus, 0, len(req.Documents))
	for i, ev := range req.Documents {
		if ev.Deleted {
			h.writeErr(w, r, apperrors.Invalid("documents[%d]: deleted documents cannot be scored", i))
			return
		}
		if err := ingest.Validate(&ev); err != nil {
			h.writeErr(w, r, apperrors.Invalid("documents[%d]: %v", i, err))
			return
		}
		corpus = append(corpus, ingest.Document(ev, h.cfg.Tokenizer))
	}

	result, err := h.svc.Score(r.Context(), corpus)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	resp := scoreResponse{Result: result}
	if req.TopK != nil {
		resp.Top = tfidf.TopK(result.Table, k)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Scores scores the ingested corpus and returns the table with the top
// terms of every document.
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	k, err := h.topK(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	result, err := h.svc.ScoreCurrent(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, scoreResponse{
		Result: result,
		Top:    tfidf.TopK(result.Table, k),
	})
}

// DocumentScores returns the top terms of one ingested document.
func (h *Handler) DocumentScores(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	k, err := h.topK(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	top, err := h.svc.Top(r.Context(), docID, k)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"top":    top,
	})
}

// AddDocument adds or replaces a document in the ingested corpus.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var ev ingest.DocumentEvent
	if err := h.decode(w, r, &ev); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if ev.Deleted {
		h.writeErr(w, r, apperrors.Invalid("use DELETE /api/v1/documents/{docID} to remove documents"))
		return
	}
	if err := ingest.Validate(&ev); err != nil {
		h.writeErr(w, r, apperrors.Invalid("%v", err))
		return
	}
	doc := ingest.Document(ev, h.cfg.Tokenizer)
	if err := h.svc.AddDocument(doc, "http"); err != nil {
		h.writeErr(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("document added", "doc_id", doc.ID, "tokens", len(doc.Tokens))
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"doc_id": doc.ID,
		"tokens": len(doc.Tokens),
	})
}

// DeleteDocument removes a document; unknown IDs are 404.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	if err := h.svc.RemoveDocument(docID, "http"); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CacheStats reports cache hits and misses since start.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops every cached score table.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.writeErr(w, r, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "invalidated",
		"keys_deleted": deleted,
	})
}

// topK reads ?top_k=, defaulting to the configured value.
func (h *Handler) topK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top_k")
	if raw == "" {
		return h.cfg.DefaultTopK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Invalid("top_k must be an integer")
	}
	return h.clampTopK(k)
}

// clampTopK rejects negative k and caps it at MaxTopK. Zero means every term.
func (h *Handler) clampTopK(k int) (int, error) {
	if k < 0 {
		return 0, apperrors.Invalid("top_k must not be negative")
	}
	if h.cfg.MaxTopK > 0 && (k == 0 || k > h.cfg.MaxTopK) {
		k = h.cfg.MaxTopK
	}
	return k, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusUnsupportedMediaType, "content type must be application/json")
	}
	body := r.Body
	if h.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
				"request body exceeds %d bytes", tooLarge.Limit)
		}
		return apperrors.Invalid("malformed request body: %v", err)
	}
	return nil
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
