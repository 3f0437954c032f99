package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vireon/internal/domain/dashboard"
)

const statsSQL = `SELECT
		(SELECT count(*) FROM products),
		(SELECT count(*) FROM orders),
		(SELECT count(*) FROM users),
		(SELECT COALESCE(sum(total_amount), 0) FROM orders WHERE status <> 'cancelled')`

var _ dashboard.Source = (*StatsRepository)(nil)

// StatsRepository computes dashboard statistics with a single query.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// Stats implements dashboard.Source.
func (r *StatsRepository) Stats(ctx context.Context) (dashboard.Stats, error) {
	var st dashboard.Stats
	err := r.pool.QueryRow(ctx, statsSQL).Scan(&st.Products, &st.Orders, &st.Users, &st.Revenue)
	if err != nil {
		return dashboard.Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	return st, nil
}
