package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/importer"
	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/similarity"
	"github.com/cuentas-dev/cuentas/internal/store"
	"github.com/cuentas-dev/cuentas/internal/transactions"
)

type testEnv struct {
	store   *store.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := zerolog.Nop()
	srv, err := New(Deps{
		Importer:     importer.New(st, importer.Options{MaxUploadBytes: maxUpload, Logger: log}),
		Transactions: transactions.NewService(st),
		Similarity:   similarity.NewFinder(st, 0, log),
		Categories:   categories.NewService(st),
		Logger:       log,
	})
	require.NoError(t, err)
	return &testEnv{store: st, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) insert(t *testing.T, date, desc, amount string) int64 {
	t.Helper()
	id, err := e.store.InsertTransaction(context.Background(), model.Transaction{
		PostingDate: date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Balance:     decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	return id
}

func upload(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func templateBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, importer.WriteTemplate(&buf))
	return buf.Bytes()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestImport_TemplateTwice(t *testing.T) {
	env := newTestEnv(t, 0)
	data := templateBytes(t)

	rec := env.do(t, upload(t, "plantilla.xlsx", data))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["inserted"])
	assert.EqualValues(t, 0, body["duplicates"])
	assert.Equal(t, "euskera", body["variant"])

	rec = env.do(t, upload(t, "plantilla.xlsx", data))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 0, body["inserted"])
	assert.EqualValues(t, 3, body["duplicates"])
}

func TestImport_Errors(t *testing.T) {
	env := newTestEnv(t, 64)

	rec := env.do(t, upload(t, "extracto.csv", []byte("a,b")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, upload(t, "extracto.xlsx", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, upload(t, "extracto.xlsx", bytes.Repeat([]byte("x"), 65)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/import", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_BatchErrorIs422(t *testing.T) {
	env := newTestEnv(t, 0)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Fecha", "Descripción", "Cantidad"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec := env.do(t, upload(t, "otro.xlsx", buf.Bytes()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "header not found")

	rec = env.do(t, upload(t, "roto.xlsx", []byte("PK\x03\x04garbage")))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unreadable workbook")
}

func TestListTransactions_MonthFilter(t *testing.T) {
	env := newTestEnv(t, 0)
	env.insert(t, "2025-05-31", "MAYO", "1")
	a := env.insert(t, "2025-06-01", "JUNIO A", "2")
	b := env.insert(t, "2025-06-20", "JUNIO B", "3")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/transactions?month=2025-06", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Transactions []model.Transaction `json:"transactions"`
		Count        int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []int64{b, a}, []int64{body.Transactions[0].ID, body.Transactions[1].ID})

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/transactions?month=junio", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/transactions?category_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFindSimilar(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.insert(t, "2025-06-10", "recibo iberdrola", "-45.90")
	env.insert(t, "2025-03-02", "nomina", "1850")

	q := url.Values{"description": {"RECIBO IBERDROLA"}, "amount": {"-45,90"}, "date": {"2025-06-10"}}
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/similar?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Candidates []model.SimilarityCandidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Candidates, 1)
	assert.Equal(t, id, body.Candidates[0].ID)
	assert.InDelta(t, 1.0, body.Candidates[0].Similarity, 1e-9)

	q.Set("top_k", "2")
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/similar?"+q.Encode(), nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Candidates, 2)

	q.Set("date", "10/06/2025")
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/similar?"+q.Encode(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/similar?amount=abc&date=2025-06-10", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategorizeJSON(t *testing.T) {
	env := newTestEnv(t, 0)
	txID := env.insert(t, "2025-06-10", "RECIBO", "-45.90")
	c, err := env.store.CreateCategory(context.Background(), "Suministros", "")
	require.NoError(t, err)

	categorize := func() map[string]any {
		form := url.Values{"category_id": {strconv.FormatInt(c.ID, 10)}}
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/transactions/%d/categorize", txID), strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := env.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode(t, rec)
	}

	body := categorize()
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Suministros", body["category"].(map[string]any)["name"])

	body = categorize()
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])

	remove := fmt.Sprintf("/api/transactions/%d/remove-category/%d", txID, c.ID)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, remove, nil))
	assert.Equal(t, true, decode(t, rec)["success"])
	rec = env.do(t, httptest.NewRequest(http.MethodPost, remove, nil))
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/transactions/999/categorize?category_id=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoriesAPI(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"Ocio"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(decode(t, rec)["id"].(float64))

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"Ocio"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := "/api/categories/" + strconv.FormatInt(id, 10)
	rec = env.do(t, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"name":"Cultura"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, 0)
	txID := env.insert(t, "2025-06-10", "RECIBO <IBERDROLA>", "-45.90")

	form := url.Values{"name": {"Hogar"}, "description": {"Casa"}}
	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/categories", rec.Header().Get("Location"))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hogar")

	require.Equal(t, int64(1), txID)
	form = url.Values{"category_id": {"1"}}
	req = httptest.NewRequest(http.MethodPost, "/transactions/1/categorize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.do(t, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "RECIBO &lt;IBERDROLA&gt;")
	assert.Contains(t, page, "-45.90")
	assert.Contains(t, page, "/transactions/1/remove-category/1")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/transactions/filter?month=2025-05", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "IBERDROLA")

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/categories/1/delete", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	has, err := env.store.HasAssignment(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDownloadTemplate(t *testing.T) {
	env := newTestEnv(t, 0)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestMiddleware_RequestIDAndRecovery(t *testing.T) {
	env := newTestEnv(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := env.do(t, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	panicky := Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec = httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
