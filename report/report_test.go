package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ratios/internal/queryreport"
)

func TestRenderHTMLPostsMultipartForm(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		gotBody = string(data)
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/").RenderHTML(context.Background(), "<h1>Ratios</h1>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
	assert.Equal(t, "/forms/chromium/convert/html", gotPath)
	assert.Equal(t, "<h1>Ratios</h1>", gotBody)
}

func TestRenderHTMLSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p></p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium crashed")
}

func TestDocumentHTMLSkipsHiddenColumnsAndEscapes(t *testing.T) {
	doc := Document{
		Title: "Financial Ratios",
		Result: queryreport.Result{
			Columns: []queryreport.Column{
				{Fieldname: "account", Label: "Ratio"},
				{Fieldname: "currency", Label: "Currency", Hidden: true},
				{Fieldname: "dec_2024", Label: "2024"},
			},
			Data: []queryreport.Row{
				{"account": "<script>", "currency": "IDR", "dec_2024": -0.25, "warn_if_negative": true},
			},
			Summary: []queryreport.SummaryItem{
				{Label: "Net Profit", Value: 100.0},
				{Type: "separator", Value: "="},
			},
		},
		Generated: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	html, err := doc.HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "IDR")
	assert.Contains(t, html, "negative")
	assert.Contains(t, html, "Net Profit")
	assert.Equal(t, 1, strings.Count(html, "<strong>"))
}

func TestPingHandler(t *testing.T) {
	gotenberg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gotenberg.Close()

	router := chi.NewRouter()
	NewHandler(NewClient(gotenberg.URL), slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	gotenberg.Close()
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
