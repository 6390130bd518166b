package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sisarm/sisarm-search/internal/catalog"
	"github.com/sisarm/sisarm-search/internal/uploads"
)

func xlsxUpload(t *testing.T, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("archivo", "partidas.xlsx")
	require.NoError(t, err)
	require.NoError(t, f.Write(part))
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func newImportHandler(t *testing.T, repo *fakeCatalog, runs *fakeRuns) *Handler {
	t.Helper()
	store, err := uploads.NewStore(t.TempDir(), time.Minute, nil)
	require.NoError(t, err)
	return NewHandler(
		NewPreviewer(repo, nil),
		NewCommitter(repo, runs, nil, nil),
		repo,
		runs,
		store,
		nil,
		nil,
	)
}

func TestPreviewThenCommitRoundTrip(t *testing.T) {
	repo := newFakeCatalog()
	runs := &fakeRuns{}
	h := newImportHandler(t, repo, runs)

	body, contentType := xlsxUpload(t, [][]any{
		{"CODIGO", "PARTIDA", "DESCRIPCION", "GRAVAMEN"},
		{"01012100", "0101", "Caballos reproductores", "10%"},
		{"02011000", "0201", "Carne bovina", "10%"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var preview PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.NotEmpty(t, preview.Token)
	assert.Equal(t, "partidas.xlsx", preview.Archivo)
	assert.Equal(t, 2, preview.Total)
	assert.Zero(t, preview.ErrorsCount)

	// nothing lands until commit
	assert.Empty(t, repo.codes())

	commitBody, err := json.Marshal(CommitRequest{Token: preview.Token, UpdateExisting: true})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/admin/import/commit", bytes.NewReader(commitBody))
	rec = httptest.NewRecorder()
	h.Commit(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result CommitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, []string{"01012100", "02011000"}, repo.codes())
	require.Len(t, runs.runs, 1)
	assert.Equal(t, "partidas.xlsx", runs.runs[0].Filename)

	// token is single-use
	req = httptest.NewRequest(http.MethodPost, "/api/admin/import/commit", bytes.NewReader(commitBody))
	rec = httptest.NewRecorder()
	h.Commit(rec, req)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestPreviewRejectsMissingFile(t *testing.T) {
	h := newImportHandler(t, newFakeCatalog(), &fakeRuns{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("otro", "campo"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/preview", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "archivo")
}

func TestPreviewRejectsMissingRequiredColumn(t *testing.T) {
	h := newImportHandler(t, newFakeCatalog(), &fakeRuns{})

	body, contentType := xlsxUpload(t, [][]any{
		{"GRAVAMEN", "UNIDAD"},
		{"10%", "KG"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "columna requerida")
}

func TestCommitUnknownToken(t *testing.T) {
	h := newImportHandler(t, newFakeCatalog(), &fakeRuns{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/commit",
		strings.NewReader(`{"token":"no-existe"}`))
	rec := httptest.NewRecorder()
	h.Commit(rec, req)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestCancelDiscardsParkedUpload(t *testing.T) {
	repo := newFakeCatalog()
	h := newImportHandler(t, repo, &fakeRuns{})

	body, contentType := xlsxUpload(t, [][]any{
		{"CODIGO", "PARTIDA", "DESCRIPCION"},
		{"01012100", "0101", "Caballos"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var preview PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))

	req = httptest.NewRequest(http.MethodPost, "/api/admin/import/cancel",
		strings.NewReader(`{"token":"`+preview.Token+`"}`))
	rec = httptest.NewRecorder()
	h.Cancel(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the discarded token is unusable afterwards
	req = httptest.NewRequest(http.MethodPost, "/api/admin/import/commit",
		strings.NewReader(`{"token":"`+preview.Token+`"}`))
	rec = httptest.NewRecorder()
	h.Commit(rec, req)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestExportStreamsWorkbook(t *testing.T) {
	repo := newFakeCatalog()
	repo.seed(catalog.TariffEntry{
		Codigo: "01012100", Capitulo: "01", Partida: "0101",
		Descripcion: "Caballos reproductores", Gravamen: "10%",
	})
	h := newImportHandler(t, repo, &fakeRuns{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/export", nil)
	rec := httptest.NewRecorder()
	h.Export(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "partidas_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "01012100")
}

func TestListRuns(t *testing.T) {
	runs := &fakeRuns{}
	require.NoError(t, runs.Create(context.Background(), &ImportRun{UserID: "admin", Filename: "a.xlsx", Imported: 3}))
	h := newImportHandler(t, newFakeCatalog(), runs)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/import/runs", nil)
	rec := httptest.NewRecorder()
	h.ListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Importaciones []ImportRun `json:"importaciones"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Importaciones, 1)
	assert.Equal(t, "a.xlsx", resp.Importaciones[0].Filename)
}
