// Package api assembles the HTTP surface of the statement analyzer.
package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/api/handlers"
	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/batch"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
)

// Deps are the collaborators behind the routes.
type Deps struct {
	Session        *batch.Session
	JobStore       jobs.JobStore
	Publisher      jobs.Publisher
	MaxUploadBytes int64
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter returns the routed handler wrapped in the standard middleware.
func NewRouter(deps Deps) http.Handler {
	statements := handlers.NewStatementsHandler(deps.Session, deps.MaxUploadBytes, deps.Log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/statements", statements.Upload)
	mux.HandleFunc("GET /api/statements", statements.Current)
	mux.HandleFunc("DELETE /api/statements", statements.Reset)
	mux.HandleFunc("GET /api/statements/export", statements.Export)
	mux.HandleFunc("GET /api/portfolio", statements.Portfolio)

	if deps.JobStore != nil && deps.Publisher != nil {
		jobsHandler := handlers.NewJobsHandler(deps.JobStore, deps.Publisher, deps.Log)
		mux.HandleFunc("POST /api/jobs", jobsHandler.Enqueue)
		mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(deps.Log)(
		middleware.RequestID(
			middleware.Logger(deps.Log)(
				middleware.CORS(deps.AllowedOrigins)(mux),
			),
		),
	)
}
