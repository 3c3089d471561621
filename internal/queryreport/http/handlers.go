// Package reporthttp serves registered query reports over HTTP.
package reporthttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/ratios/internal/i18n"
	"github.com/odyssey-erp/ratios/internal/platform/httpx"
	"github.com/odyssey-erp/ratios/internal/queryreport"
	"github.com/odyssey-erp/ratios/report"
)

const (
	defaultRunTimeout = 15 * time.Second
	// statusClientClosedRequest answers a caller that went away mid-run.
	statusClientClosedRequest = 499
)

// Runner executes a report for the request's query parameters.
type Runner func(ctx context.Context, values url.Values) (queryreport.Result, error)

// LinkSearcher resolves link suggestions for a doctype.
type LinkSearcher interface {
	LinkOptions(ctx context.Context, doctype, txt string) ([]queryreport.LinkOption, error)
}

// PDFRenderer converts HTML to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// RunObserver records report executions.
type RunObserver interface {
	ObserveReportRun(report, status string, elapsed time.Duration)
}

// Config groups the handler collaborators. Only Registry is required.
type Config struct {
	Registry    *queryreport.Registry
	Runners     map[string]Runner
	Links       LinkSearcher
	PDF         PDFRenderer
	Translator  *i18n.Translator
	Logger      *slog.Logger
	Metrics     RunObserver
	ClientError func(error) bool
	RunTimeout  time.Duration
}

// Handler exposes report definitions, runs and exports.
type Handler struct {
	registry    *queryreport.Registry
	runners     map[string]Runner
	links       LinkSearcher
	pdf         PDFRenderer
	tr          *i18n.Translator
	logger      *slog.Logger
	metrics     RunObserver
	clientError func(error) bool
	timeout     time.Duration
	group       singleflight.Group
	csvPool     sync.Pool
	now         func() time.Time
}

// NewHandler constructs the report HTTP handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		registry:    cfg.Registry,
		runners:     cfg.Runners,
		links:       cfg.Links,
		pdf:         cfg.PDF,
		tr:          cfg.Translator,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		clientError: cfg.ClientError,
		timeout:     cfg.RunTimeout,
		now:         time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.timeout <= 0 {
		h.timeout = defaultRunTimeout
	}
	if h.clientError == nil {
		h.clientError = func(error) bool { return false }
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type reportSummary struct {
	Name     string `json:"name"`
	Filters  int    `json:"filters"`
	Runnable bool   `json:"runnable"`
}

type definitionResponse struct {
	Name string `json:"name"`
	queryreport.Definition
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	out := make([]reportSummary, 0, len(names))
	for _, name := range names {
		def, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		_, runnable := h.runners[name]
		out = append(out, reportSummary{Name: name, Filters: len(def.Filters), Runnable: runnable})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleDefinition(w http.ResponseWriter, r *http.Request) {
	name, def, err := h.lookup(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, definitionResponse{Name: name, Definition: def})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	name, _, result, err := h.execute(r)
	if err != nil {
		h.respondRunError(w, name, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	name, def, result, err := h.execute(r)
	if err != nil {
		h.respondRunError(w, name, err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := WriteCSV(buf, result, def.Formatter); err != nil {
		h.respondRunError(w, name, err)
		return
	}
	if err := httpx.Attachment(w, "text/csv; charset=utf-8", h.filename(name, "csv"), buf.Bytes()); err != nil {
		h.logger.Warn("stream csv", slog.String("report", name), slog.Any("error", err))
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.RespondError(w, fmt.Errorf("pdf renderer: %w", httpx.ErrUnavailable))
		return
	}
	name, def, result, err := h.execute(r)
	if err != nil {
		h.respondRunError(w, name, err)
		return
	}
	html, err := report.Document{
		Title:     h.tr.T(name),
		Lang:      h.tr.Language(),
		Result:    result,
		Format:    def.Formatter,
		Generated: h.now(),
	}.HTML()
	if err != nil {
		h.respondRunError(w, name, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	pdf, err := h.pdf.RenderHTML(ctx, html)
	if err != nil {
		h.logger.Error("render pdf", slog.String("report", name), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("render pdf: %w", httpx.ErrUpstream))
		return
	}
	if err := httpx.Attachment(w, "application/pdf", h.filename(name, "pdf"), pdf); err != nil {
		h.logger.Warn("stream pdf", slog.String("report", name), slog.Any("error", err))
	}
}

func (h *Handler) handleLinkOptions(w http.ResponseWriter, r *http.Request) {
	if h.links == nil {
		httpx.RespondError(w, fmt.Errorf("link options: %w", httpx.ErrNotImplemented))
		return
	}
	doctype, err := url.PathUnescape(chi.URLParam(r, "doctype"))
	if err != nil || strings.TrimSpace(doctype) == "" {
		httpx.RespondError(w, fmt.Errorf("doctype: %w", httpx.ErrValidation))
		return
	}
	options, err := h.links.LinkOptions(r.Context(), doctype, r.URL.Query().Get("txt"))
	if err != nil {
		h.logger.Error("link options", slog.String("doctype", doctype), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if options == nil {
		options = []queryreport.LinkOption{}
	}
	httpx.JSON(w, http.StatusOK, options)
}

// lookup resolves the {name} URL parameter, accepting the registered name or
// its lowercase hyphenated slug.
func (h *Handler) lookup(r *http.Request) (string, queryreport.Definition, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return "", queryreport.Definition{}, fmt.Errorf("report name: %w", httpx.ErrValidation)
	}
	if def, ok := h.registry.Get(raw); ok {
		return raw, def, nil
	}
	for _, name := range h.registry.Names() {
		if slug(name) == strings.ToLower(raw) {
			if def, ok := h.registry.Get(name); ok {
				return name, def, nil
			}
		}
	}
	return raw, queryreport.Definition{}, fmt.Errorf("%q: %w", raw, httpx.ErrNotFound)
}

func (h *Handler) execute(r *http.Request) (string, queryreport.Definition, queryreport.Result, error) {
	name, def, err := h.lookup(r)
	if err != nil {
		return name, def, queryreport.Result{}, err
	}
	run, ok := h.runners[name]
	if !ok {
		return name, def, queryreport.Result{}, fmt.Errorf("run %q: %w", name, httpx.ErrNotImplemented)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	values := r.URL.Query()
	key := name + "?" + values.Encode()
	start := time.Now()
	ch := h.group.DoChan(key, func() (any, error) {
		// shared by every caller with the same key
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
		defer cancel()
		return run(runCtx, values)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res = <-ch:
		err = res.Err
	}
	h.observe(name, err, time.Since(start))
	if err != nil {
		return name, def, queryreport.Result{}, err
	}
	result, _ := res.Val.(queryreport.Result)
	return name, def, result, nil
}

func (h *Handler) observe(name string, err error, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status = "canceled"
	case h.clientError(err):
		status = "client_error"
	default:
		status = "error"
	}
	h.metrics.ObserveReportRun(name, status, elapsed)
}

func (h *Handler) respondRunError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Debug("report run canceled by client", slog.String("report", name))
		w.WriteHeader(statusClientClosedRequest)
	case h.clientError(err):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("report run timed out", slog.String("report", name))
		httpx.RespondError(w, fmt.Errorf("%s: %w", name, httpx.ErrUnavailable))
	case httpx.StatusOf(err) != http.StatusInternalServerError:
		httpx.RespondError(w, err)
	default:
		h.logger.Error("report run failed", slog.String("report", name), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) filename(name, ext string) string {
	return fmt.Sprintf("%s-%s.%s", slug(name), h.now().UTC().Format("20060102"), ext)
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// WriteCSV writes the visible columns of result. Cells go through format when
// one is given.
func WriteCSV(w io.Writer, result queryreport.Result, format queryreport.Formatter) error {
	writer := csv.NewWriter(w)
	var columns []queryreport.Column
	header := make([]string, 0, len(result.Columns))
	for _, col := range result.Columns {
		if col.Hidden {
			continue
		}
		columns = append(columns, col)
		header = append(header, col.Label)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range result.Data {
		record := make([]string, 0, len(columns))
		for _, col := range columns {
			record = append(record, cell(row[col.Fieldname], row, col, format))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cell(value any, row queryreport.Row, col queryreport.Column, format queryreport.Formatter) string {
	if format != nil {
		return format(value, row, col)
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
