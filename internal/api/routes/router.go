package routes

import (
	"net/http"

	"github.com/tawqeea/marketplace-backend/internal/api/handlers"
	"github.com/tawqeea/marketplace-backend/internal/api/middleware"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
)

// Router holds all route handlers

type Router struct {
	mux *http.ServeMux

	ndaHandler *handlers.NdaHandler

	esignWebhookHandler *handlers.EsignWebhookHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router

func NewRouter(
	ndaHandler *handlers.NdaHandler,
	esignWebhookHandler *handlers.EsignWebhookHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		ndaHandler:          ndaHandler,
		esignWebhookHandler: esignWebhookHandler,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes

func (r *Router) SetupRoutes() http.Handler {

	// Health check endpoint

	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// NDA workflow endpoints

	r.mux.HandleFunc("POST /api/ndas", r.ndaHandler.Initiate)

	r.mux.HandleFunc("POST /api/ndas/{id}/complete", r.ndaHandler.Complete)

	r.mux.HandleFunc("POST /api/ndas/{id}/cancel", r.ndaHandler.Cancel)

	r.mux.HandleFunc("GET /api/ndas/{id}/status", r.ndaHandler.GetStatus)

	r.mux.HandleFunc("GET /api/ndas/{id}/document", r.ndaHandler.GetDocument)

	r.mux.HandleFunc("GET /api/projects/{id}/ndas", r.ndaHandler.ListByProject)

	// E-signature provider webhook endpoint
	if r.esignWebhookHandler != nil {
		r.mux.HandleFunc("POST /webhooks/esign", r.esignWebhookHandler.HandleWebhook)
	}

	// Apply middleware in reverse order (last middleware wraps first)

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests are answered before routing
	handler = middleware.CORSMiddleware(handler)

	return handler
}
