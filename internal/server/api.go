package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/logger"
	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/similarity"
	"github.com/cuentas-dev/cuentas/internal/transactions"
)

// multipartOverhead leaves room for form boundaries and headers on top of
// the file size cap.
const multipartOverhead = 1 << 20

// importStatement handles POST /api/import with a multipart "file" field.
func (s *Server) importStatement(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.deps.Importer.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
			return
		}
		WriteError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	out, err := s.deps.Importer.IngestFile(r.Context(), header.Filename, data)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			reqLog := logger.FromContext(r.Context())
			reqLog.Error().Err(err).Str("file", header.Filename).Msg("import failed")
			WriteJSON(w, status, map[string]any{"error": "import stopped by a storage error", "outcome": out})
			return
		}
		WriteError(w, status, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// listTransactions handles GET /api/transactions?month=YYYY-MM&category_id=N
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	txs, err := s.deps.Transactions.Query(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, "failed to list transactions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

func parseFilter(w http.ResponseWriter, r *http.Request) (transactions.Filter, bool) {
	q := r.URL.Query()
	f := transactions.Filter{Month: q.Get("month")}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "category_id must be an integer")
			return f, false
		}
		f.CategoryID = id
	}
	return f, true
}

// findSimilar handles GET /api/similar?description=&amount=&date=&threshold=&top_k=
func (s *Server) findSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := similarity.Request{Description: q.Get("description"), Date: q.Get("date")}

	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(q.Get("amount")), ",", "."))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "amount must be a number")
		return
	}
	req.Amount = amount

	if v := q.Get("threshold"); v != "" {
		if req.Threshold, err = strconv.ParseFloat(v, 64); err != nil {
			WriteError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
	}
	if v := q.Get("top_k"); v != "" {
		if req.TopK, err = strconv.Atoi(v); err != nil {
			WriteError(w, http.StatusBadRequest, "top_k must be an integer")
			return
		}
	}

	cands, err := s.deps.Similarity.Find(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "failed to find similar transactions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"candidates": cands,
		"count":      len(cands),
	})
}

// categorizeJSON handles POST /api/transactions/{id}/categorize with a
// category_id form value.
func (s *Server) categorizeJSON(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathID(r, "id")
	if !ok {
		WriteJSON(w, http.StatusBadRequest, result{Message: "invalid transaction id"})
		return
	}
	catID, err := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, result{Message: "category_id must be an integer"})
		return
	}

	c, err := s.deps.Categories.Assign(r.Context(), txID, catID)
	if errors.Is(err, categories.ErrAlreadyAssigned) {
		WriteJSON(w, http.StatusOK, result{Message: err.Error()})
		return
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			reqLog := logger.FromContext(r.Context())
			reqLog.Error().Err(err).Msg("assign category failed")
		}
		WriteJSON(w, status, result{Message: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, result{Success: true, Category: &c})
}

// removeCategoryJSON handles POST /api/transactions/{id}/remove-category/{cid}
func (s *Server) removeCategoryJSON(w http.ResponseWriter, r *http.Request) {
	txID, ok1 := pathID(r, "id")
	catID, ok2 := pathID(r, "cid")
	if !ok1 || !ok2 {
		WriteJSON(w, http.StatusBadRequest, result{Message: "invalid id"})
		return
	}

	err := s.deps.Categories.Remove(r.Context(), txID, catID)
	if errors.Is(err, categories.ErrAssignmentNotFound) {
		WriteJSON(w, http.StatusOK, result{Message: err.Error()})
		return
	}
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("remove category failed")
		WriteJSON(w, http.StatusInternalServerError, result{Message: "failed to remove category"})
		return
	}
	WriteJSON(w, http.StatusOK, result{Success: true})
}

// listCategories handles GET /api/categories
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "failed to list categories")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"categories": cats,
		"count":      len(cats),
	})
}

type categoryBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// createCategory handles POST /api/categories
func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := s.deps.Categories.Create(r.Context(), body.Name, body.Description)
	if err != nil {
		s.fail(w, r, err, "failed to create category")
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

// updateCategory handles PUT /api/categories/{id}
func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var body categoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := s.deps.Categories.Update(r.Context(), id, body.Name, body.Description)
	if err != nil {
		s.fail(w, r, err, "failed to update category")
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

// deleteCategory handles DELETE /api/categories/{id}
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := s.deps.Categories.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// result is the {success, message, category} shape the page script expects.
type result struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Category *model.Category `json:"category,omitempty"`
}

// fail writes err as JSON. Client errors carry their message; anything
// else is logged and reported generically.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg(generic)
		WriteError(w, status, generic)
		return
	}
	WriteError(w, status, err.Error())
}
