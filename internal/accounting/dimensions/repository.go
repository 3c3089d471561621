package dimensions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ratios/internal/queryreport"
)

const undefinedTable = "42P01"

// Repository reads configured dimensions and their link values.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListDimensions returns enabled dimensions ordered by creation.
// ErrNoCatalogue is returned when the dimensions table does not exist.
func (r *Repository) ListDimensions(ctx context.Context) ([]Dimension, error) {
	rows, err := r.pool.Query(ctx, `SELECT document_type, fieldname, label FROM accounting_dimensions WHERE disabled = false ORDER BY created_at, document_type`)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, ErrNoCatalogue
		}
		return nil, err
	}
	defer rows.Close()
	var dims []Dimension
	for rows.Next() {
		var d Dimension
		if err := rows.Scan(&d.Doctype, &d.Fieldname, &d.Label); err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, ErrNoCatalogue
		}
		return nil, err
	}
	return dims, nil
}

// SearchValues looks up link values of a doctype whose name or title matches txt.
func (r *Repository) SearchValues(ctx context.Context, doctype, txt string, limit int) ([]queryreport.LinkOption, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, COALESCE(title, ''), COALESCE(description, '')
FROM link_values
WHERE document_type = $1 AND disabled = false AND (name ILIKE $2 OR title ILIKE $2)
ORDER BY name
LIMIT $3`, doctype, "%"+txt+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []queryreport.LinkOption
	for rows.Next() {
		var opt queryreport.LinkOption
		if err := rows.Scan(&opt.Value, &opt.Label, &opt.Description); err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	return out, rows.Err()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
