// Package server exposes ingestion, queries and category management over
// HTTP, both as HTML pages and as a JSON API.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/importer"
	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/period"
	"github.com/cuentas-dev/cuentas/internal/similarity"
	"github.com/cuentas-dev/cuentas/internal/store"
	"github.com/cuentas-dev/cuentas/internal/transactions"
	"github.com/cuentas-dev/cuentas/internal/workbook"
)

//go:embed templates/*.html
var templateFS embed.FS

// Ingester ingests uploaded statements.
type Ingester interface {
	IngestFile(ctx context.Context, name string, data []byte) (importer.Outcome, error)
	MaxUploadBytes() int64
}

// TransactionQuerier lists transactions.
type TransactionQuerier interface {
	Query(ctx context.Context, f transactions.Filter) ([]model.Transaction, error)
}

// SimilarityFinder ranks stored transactions against a reference.
type SimilarityFinder interface {
	Find(ctx context.Context, req similarity.Request) ([]model.SimilarityCandidate, error)
}

// CategoryService manages categories and their assignments.
type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, name, description string) (model.Category, error)
	Update(ctx context.Context, id int64, name, description string) (model.Category, error)
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, transactionID, categoryID int64) (model.Category, error)
	Remove(ctx context.Context, transactionID, categoryID int64) error
}

// Deps are the services the server routes to.
type Deps struct {
	Importer     Ingester
	Transactions TransactionQuerier
	Similarity   SimilarityFinder
	Categories   CategoryService
	Logger       zerolog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	deps  Deps
	log   zerolog.Logger
	pages *template.Template
}

// New parses the page templates and returns a Server.
func New(deps Deps) (*Server, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{deps: deps, log: deps.Logger, pages: pages}, nil
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /transactions/filter", s.index)
	mux.HandleFunc("GET /categories", s.categoriesPage)
	mux.HandleFunc("POST /categories", s.createCategoryForm)
	mux.HandleFunc("POST /categories/{id}/delete", s.deleteCategoryForm)
	mux.HandleFunc("POST /transactions/{id}/categorize", s.categorizeForm)
	mux.HandleFunc("POST /transactions/{id}/remove-category/{cid}", s.removeCategoryForm)
	mux.HandleFunc("GET /template", s.downloadTemplate)

	mux.HandleFunc("POST /api/import", s.importStatement)
	mux.HandleFunc("GET /api/transactions", s.listTransactions)
	mux.HandleFunc("GET /api/similar", s.findSimilar)
	mux.HandleFunc("POST /api/transactions/{id}/categorize", s.categorizeJSON)
	mux.HandleFunc("POST /api/transactions/{id}/remove-category/{cid}", s.removeCategoryJSON)
	mux.HandleFunc("GET /api/categories", s.listCategories)
	mux.HandleFunc("POST /api/categories", s.createCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.updateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.deleteCategory)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return Recovery(s.log)(RequestID(Logger(s.log)(mux)))
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var wbErr *workbook.Error
	switch {
	case errors.Is(err, importer.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrUnsupportedExtension),
		errors.Is(err, importer.ErrEmptyPayload),
		errors.As(err, &wbErr),
		errors.Is(err, categories.ErrEmptyName),
		errors.Is(err, similarity.ErrInvalidDate),
		errors.Is(err, period.ErrInvalidMonth):
		return http.StatusBadRequest
	case importer.IsBatchError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
