package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers report endpoints onto the router. Exports are rate
// limited per client IP.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/reports", h.handleList)
	r.Get("/reports/link-options/{doctype}", h.handleLinkOptions)
	r.Get("/reports/{name}", h.handleDefinition)
	r.Get("/reports/{name}/run", h.handleRun)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/reports/{name}/export.csv", h.handleCSV)
		gr.Get("/reports/{name}/pdf", h.handlePDF)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
