package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/middleware"
)

// NewRouter builds the service handler.
//
// Route table:
//
//	POST   /api/v1/score               score the corpus in the body
//	GET    /api/v1/scores              score the ingested corpus
//	GET    /api/v1/scores/{docID}      top terms of one document
//	POST   /api/v1/documents           add or replace a document
//	DELETE /api/v1/documents/{docID}   remove a document
//	GET    /api/v1/cache/stats
//	POST   /api/v1/cache/invalidate
//	GET    /health/live
//	GET    /health/ready
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → mux
//
// m may be nil when metrics are disabled.
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("POST /api/v1/score", h.Score)
	mux.HandleFunc("GET /api/v1/scores", h.Scores)
	mux.HandleFunc("GET /api/v1/scores/{docID}", h.DocumentScores)

	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{docID}", h.DeleteDocument)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	var chain http.Handler = mux
	if timeout > 0 {
		chain = middleware.Timeout(timeout)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)
	return chain
}
