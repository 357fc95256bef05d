package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xencrm/crm-server/internal/audience"
	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/rules"
)

// CustomerStore implements audience.CustomerStore against the synced
// customer view. Counts execute the compiled textual predicate directly;
// row queries use the parameterized form of the same predicate.
type CustomerStore struct{ db *sql.DB }

// NewCustomerStore creates a Postgres-backed customer store.
func NewCustomerStore(db *sql.DB) *CustomerStore { return &CustomerStore{db: db} }

func (s *CustomerStore) Count(ctx context.Context, p audience.Predicate) (int, error) {
	if p.Empty {
		return 0, nil
	}
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM customers_mv WHERE %s`, p.SQL)
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (s *CustomerStore) Query(ctx context.Context, p audience.Predicate, limit int) ([]domain.Customer, error) {
	if p.Empty {
		return nil, nil
	}

	where, args := rules.BindSQL(p.Filter)
	q := fmt.Sprintf(`
		SELECT customer_id, name, email, total_spend, total_orders, total_visits
		FROM customers_mv
		WHERE %s
		ORDER BY total_spend DESC`, where)
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.CustomerID, &c.Name, &c.Email, &c.TotalSpend, &c.TotalOrders, &c.TotalVisits,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Dashboard returns the most recently synced customers for the dashboard
// feed, projected to the display fields.
func (s *CustomerStore) Dashboard(ctx context.Context, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, name, email, total_spend, total_visits, status, synced_at
		FROM customers_mv
		ORDER BY synced_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.CustomerID, &c.Name, &c.Email, &c.TotalSpend, &c.TotalVisits, &c.Status, &c.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
