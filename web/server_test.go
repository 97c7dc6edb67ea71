package web

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peinspect/common"
	"peinspect/logger"
	"peinspect/perw"
	perwtesting "peinspect/perw/testing"
)

func newTestEcho(t *testing.T, maxSize int64) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewServer(Options{MaxFileSize: maxSize, HistorySize: 4, Logger: logger.Discard()}).Register(e)
	return e
}

func upload(t *testing.T, e *echo.Echo, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) common.Result {
	t.Helper()
	var res common.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := get(newTestEcho(t, 0), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_AnalyzeAndFetch(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 0)
	rec := upload(t, e, "/api/analyze", "file", "app.exe", perwtesting.NewImage64().Build())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)

	res := decodeResult(t, rec)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "app.exe", res.Filename)
	require.NotNil(t, res.Report)
	assert.Equal(t, perw.StatusClean, res.Report.Status)
	assert.Equal(t, perw.ArchPE32Plus, res.Report.Architecture)
	assert.Len(t, res.Report.Sections, 2)

	stored := get(e, "/api/analyses/"+res.ID)
	require.Equal(t, http.StatusOK, stored.Code)
	again := decodeResult(t, stored)
	assert.Equal(t, res.ID, again.ID)
	assert.Equal(t, res.SHA256, again.SHA256)
}

func TestAPI_Statuses(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 0)

	t.Run("structural rejection", func(t *testing.T) {
		rec := upload(t, e, "/api/analyze", "file", "notes.txt", []byte("just some text"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		res := decodeResult(t, rec)
		assert.Nil(t, res.Report)
		assert.Equal(t, "not a recognized executable container", res.Error)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := upload(t, e, "/api/analyze", "document", "app.exe", []byte("MZ"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "no file uploaded")
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{}"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := get(e, "/api/analyses/does-not-exist")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("suspicious is still 200", func(t *testing.T) {
		img := perwtesting.NewImage32()
		img.Sections[0].Characteristics |= perwtesting.ScnWrite
		rec := upload(t, e, "/api/analyze", "file", "rwx.exe", img.Build())
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeResult(t, rec)
		assert.Equal(t, perw.StatusSuspicious, res.Report.Status)
		assert.Len(t, res.Report.Warnings, 1)
	})
}

func TestAPI_TooLarge(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 64)
	rec := upload(t, e, "/api/analyze", "file", "big.exe", perwtesting.NewImage64().Build())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPage(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 0)

	t.Run("form", func(t *testing.T) {
		rec := get(e, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `enctype="multipart/form-data"`)
		assert.NotContains(t, rec.Body.String(), `id="error"`)
	})

	t.Run("report", func(t *testing.T) {
		img := perwtesting.NewImage64()
		img.EntryPoint = 0x8000
		rec := upload(t, e, "/", "file", "odd.exe", img.Build())
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "odd.exe")
		assert.Contains(t, body, "<strong>Suspicious</strong>")
		assert.Contains(t, body, "0x00000040")
		assert.Contains(t, body, "Entry Point does not point to any known section.")
		assert.Contains(t, body, ".text")
	})

	t.Run("rejected", func(t *testing.T) {
		rec := upload(t, e, "/", "file", "a.bin", []byte("ZZZZ"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "not a recognized executable container")
	})

	t.Run("missing file", func(t *testing.T) {
		rec := upload(t, e, "/", "other", "a.bin", []byte("ZZZZ"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `id="error"`)
	})
}

func TestHistory_EvictsOldest(t *testing.T) {
	t.Parallel()

	h := NewHistory(2)
	first := h.Add(&common.Result{Filename: "a"})
	second := h.Add(&common.Result{Filename: "b"})
	third := h.Add(&common.Result{Filename: "c"})

	assert.Equal(t, 2, h.Len())
	_, ok := h.Get(first)
	assert.False(t, ok)

	res, ok := h.Get(second)
	require.True(t, ok)
	assert.Equal(t, "b", res.Filename)
	assert.Equal(t, second, res.ID)

	_, ok = h.Get(third)
	assert.True(t, ok)
	assert.NotEqual(t, second, third)
}
