package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/importer"
	"github.com/cuentas-dev/cuentas/internal/logger"
	"github.com/cuentas-dev/cuentas/internal/model"
)

type indexPage struct {
	Transactions []model.Transaction
	Categories   []model.Category
	Month        string
	CategoryID   int64
	Year         int
}

// index renders the transaction table. It serves both / and the filtered
// view at /transactions/filter.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	txs, err := s.deps.Transactions.Query(r.Context(), f)
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	s.render(w, r, "index.html", indexPage{
		Transactions: txs,
		Categories:   cats,
		Month:        f.Month,
		CategoryID:   f.CategoryID,
		Year:         time.Now().Year(),
	})
}

func (s *Server) categoriesPage(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	s.render(w, r, "categories.html", struct{ Categories []model.Category }{cats})
}

func (s *Server) createCategoryForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Categories.Create(r.Context(), r.FormValue("name"), r.FormValue("description")); err != nil {
		s.failPage(w, r, err)
		return
	}
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

func (s *Server) deleteCategoryForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}
	if err := s.deps.Categories.Delete(r.Context(), id); err != nil {
		s.failPage(w, r, err)
		return
	}
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

// categorizeForm tags a transaction. Re-tagging with the same category is
// a no-op.
func (s *Server) categorizeForm(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	catID, err := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if err != nil {
		http.Error(w, "category_id must be an integer", http.StatusBadRequest)
		return
	}
	_, err = s.deps.Categories.Assign(r.Context(), txID, catID)
	if err != nil && !errors.Is(err, categories.ErrAlreadyAssigned) {
		s.failPage(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) removeCategoryForm(w http.ResponseWriter, r *http.Request) {
	txID, ok1 := pathID(r, "id")
	catID, ok2 := pathID(r, "cid")
	if !ok1 || !ok2 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	err := s.deps.Categories.Remove(r.Context(), txID, catID)
	if err != nil && !errors.Is(err, categories.ErrAssignmentNotFound) {
		s.failPage(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// downloadTemplate serves an empty statement laid out for import.
func (s *Server) downloadTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf); err != nil {
		s.failPage(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="plantilla_movimientos.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.failPage(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) failPage(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("path", r.URL.Path).Msg("page failed")
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
