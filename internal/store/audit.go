package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/models"
	"pricebook/pkg/utils"
)

// ============================================================================
// Adjustment & Audit Methods
// ============================================================================

// IsActionApplied reports whether an audit entry exists for the idempotency key.
func (s *SQLiteStore) IsActionApplied(ctx context.Context, symbol string, execDate time.Time, actionType string) (bool, error) {
	return actionLogged(ctx, s.db, symbol, execDate, actionType)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func actionLogged(ctx context.Context, q queryRower, symbol string, execDate time.Time, actionType string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM applied_actions_log
		WHERE symbol = ? AND exec_date = ? AND action_type = ?
		LIMIT 1
	`, symbol, models.FormatDate(execDate), actionType).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query applied actions: %w", err)
	}
	return true, nil
}

// ApplyAdjustment multiplies every price field of the rows of entry.Symbol dated
// strictly before entry.ExecDate by entry.Factor and appends entry to the audit log.
// Both writes share one transaction. It returns the number of price rows rescaled,
// or ErrAlreadyApplied when the idempotency key is already logged.
func (s *SQLiteStore) ApplyAdjustment(ctx context.Context, entry models.AppliedAction) (int64, error) {
	return utils.RetryWithResult(ctx, s.retry, func() (int64, error) {
		return s.applyAdjustment(ctx, entry)
	})
}

func (s *SQLiteStore) applyAdjustment(ctx context.Context, entry models.AppliedAction) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	execDate := models.FormatDate(entry.ExecDate)

	applied, err := actionLogged(ctx, tx, entry.Symbol, entry.ExecDate, entry.Type)
	if err != nil {
		return 0, err
	}
	if applied {
		return 0, apperrors.ErrAlreadyApplied
	}

	setClauses := make([]string, len(PriceColumns))
	args := make([]interface{}, 0, len(PriceColumns)+2)
	for i, col := range PriceColumns {
		setClauses[i] = fmt.Sprintf("%s = %s * ?", col, col)
		args = append(args, entry.Factor)
	}
	args = append(args, entry.Symbol, execDate)

	res, err := tx.ExecContext(ctx,
		"UPDATE prices SET "+strings.Join(setClauses, ", ")+" WHERE symbol = ? AND trade_date < ?",
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust prices: %w", err)
	}
	rows, _ := res.RowsAffected()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applied_actions_log (log_id, symbol, exec_date, action_type, action_details, adjustment_factor, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.LogID, entry.Symbol, execDate, entry.Type, entry.Details, entry.Factor,
		entry.AppliedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to log applied action: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rows, nil
}

// GetAppliedActions retrieves audit entries, oldest execution date first.
func (s *SQLiteStore) GetAppliedActions(ctx context.Context, filter ActionFilter) ([]models.AppliedAction, error) {
	query := `
		SELECT log_id, symbol, exec_date, action_type, action_details, adjustment_factor, applied_at
		FROM applied_actions_log WHERE 1=1
	`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND exec_date >= ?"
		args = append(args, models.FormatDate(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND exec_date <= ?"
		args = append(args, models.FormatDate(filter.EndDate))
	}

	query += " ORDER BY exec_date ASC, applied_at ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied actions: %w", err)
	}
	defer rows.Close()

	var entries []models.AppliedAction
	for rows.Next() {
		var (
			e                   models.AppliedAction
			execDate, appliedAt string
			details             sql.NullString
		)
		if err := rows.Scan(&e.LogID, &e.Symbol, &execDate, &e.Type, &details, &e.Factor, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan applied action: %w", err)
		}
		e.Details = details.String
		if e.ExecDate, err = models.ParseDate(execDate); err != nil {
			return nil, fmt.Errorf("invalid exec date %q: %w", execDate, err)
		}
		if e.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt); err != nil {
			return nil, fmt.Errorf("invalid applied_at %q: %w", appliedAt, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applied actions: %w", err)
	}

	return entries, nil
}
