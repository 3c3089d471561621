package ratios

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the Financial Ratio Configurator.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesAccounts lists the accounts whose movements count as sales.
func (r *Repository) SalesAccounts(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT account FROM financial_ratio_sales_accounts ORDER BY idx, account`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
