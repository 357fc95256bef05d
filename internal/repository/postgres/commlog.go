package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/xencrm/crm-server/internal/domain"
)

// CommLogRepo implements campaign.LogRepository against PostgreSQL.
type CommLogRepo struct{ db *sql.DB }

// NewCommLogRepo creates a Postgres-backed communication log repository.
func NewCommLogRepo(db *sql.DB) *CommLogRepo { return &CommLogRepo{db: db} }

// CreateMany inserts the batch inside one transaction so a failed launch
// never leaves a partial log behind.
func (r *CommLogRepo) CreateMany(ctx context.Context, entries []domain.CommunicationLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO communication_log
			(log_id, campaign_id, customer_id, customer_email, customer_name,
			 message_text, status, attempts, max_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`)
	if err != nil {
		return fmt.Errorf("prepare log insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), e.CampaignID, e.CustomerID, e.CustomerEmail,
			e.CustomerName, e.MessageText, e.Status, e.Attempts, e.MaxAttempts,
		); err != nil {
			return fmt.Errorf("insert log entry for customer %s: %w", e.CustomerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit log batch: %w", err)
	}
	return nil
}
