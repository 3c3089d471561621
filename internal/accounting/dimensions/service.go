package dimensions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/ratios/internal/queryreport"
)

// ErrNoCatalogue indicates the deployment has no dimension configuration.
var ErrNoCatalogue = errors.New("dimensions: catalogue not configured")

const defaultLookupLimit = 20

// Store is the persistence contract used by Service.
type Store interface {
	ListDimensions(ctx context.Context) ([]Dimension, error)
	SearchValues(ctx context.Context, doctype, txt string, limit int) ([]queryreport.LinkOption, error)
}

// Service resolves the dimension catalogue and link options.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Catalogue returns the configured dimensions, falling back to Defaults when
// the deployment has none.
func (s *Service) Catalogue(ctx context.Context) ([]Dimension, error) {
	if s == nil || s.store == nil {
		return Defaults(), nil
	}
	dims, err := s.store.ListDimensions(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCatalogue) {
			s.logger.Info("dimension catalogue missing, using defaults")
			return Defaults(), nil
		}
		return nil, err
	}
	if len(dims) == 0 {
		return Defaults(), nil
	}
	for i := range dims {
		if dims[i].Fieldname == "" {
			dims[i].Fieldname = FieldnameFor(dims[i].Doctype)
		}
	}
	return dims, nil
}

// LinkOptions searches link values of doctype matching txt.
func (s *Service) LinkOptions(ctx context.Context, doctype, txt string) ([]queryreport.LinkOption, error) {
	doctype = strings.TrimSpace(doctype)
	if doctype == "" {
		return nil, errors.New("dimensions: doctype required")
	}
	if s == nil || s.store == nil {
		return nil, nil
	}
	return s.store.SearchValues(ctx, doctype, strings.TrimSpace(txt), defaultLookupLimit)
}

// Lookup binds LinkOptions to a doctype.
func (s *Service) Lookup(doctype string) queryreport.LinkLookup {
	return func(ctx context.Context, txt string) ([]queryreport.LinkOption, error) {
		return s.LinkOptions(ctx, doctype, txt)
	}
}
