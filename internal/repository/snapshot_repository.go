package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
)

// SnapshotRepository provides data access methods for the portfolio_snapshot
// table, the materialized history the snapshot job writes.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert stores a snapshot.
func (s *SnapshotRepository) Insert(ctx context.Context, snap *model.PortfolioSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshot
		(id, timestamp, total_value, total_cost_basis, unrealized_gain_loss, realized_gain_loss)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		snap.ID,
		FormatTime(snap.Timestamp),
		snap.TotalValue.String(),
		snap.TotalCostBasis.String(),
		snap.UnrealizedGainLoss.String(),
		snap.RealizedGainLoss.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot.
func (s *SnapshotRepository) Latest(ctx context.Context) (*model.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, total_value, total_cost_basis, unrealized_gain_loss, realized_gain_loss, created_at
		FROM portfolio_snapshot
		ORDER BY timestamp DESC
		LIMIT 1
	`)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrSnapshotNotFound
	}
	return snap, err
}

// ClosestBefore returns the latest snapshot taken at or before the cutoff.
func (s *SnapshotRepository) ClosestBefore(ctx context.Context, cutoff time.Time) (*model.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, total_value, total_cost_basis, unrealized_gain_loss, realized_gain_loss, created_at
		FROM portfolio_snapshot
		WHERE timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, FormatTime(cutoff))

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrSnapshotNotFound
	}
	return snap, err
}

// History retrieves snapshots within the date range, oldest first.
func (s *SnapshotRepository) History(ctx context.Context, start, end time.Time) ([]model.PortfolioSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, total_value, total_cost_basis, unrealized_gain_loss, realized_gain_loss, created_at
		FROM portfolio_snapshot
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, FormatTime(start), FormatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PortfolioSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio snapshots: %w", err)
	}
	return snapshots, nil
}

// DeleteOlderThan removes snapshots taken before the cutoff and reports how
// many were deleted.
func (s *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM portfolio_snapshot WHERE timestamp < ?`, FormatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored snapshots.
func (s *SnapshotRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM portfolio_snapshot`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

func scanSnapshot(row rowScanner) (*model.PortfolioSnapshot, error) {
	var (
		snap                                  model.PortfolioSnapshot
		timestampStr, createdAtStr            string
		valueStr, costStr, unrealStr, realStr string
	)

	err := row.Scan(
		&snap.ID,
		&timestampStr,
		&valueStr,
		&costStr,
		&unrealStr,
		&realStr,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio snapshot: %w", err)
	}

	if snap.Timestamp, err = ParseTime(timestampStr); err != nil {
		return nil, err
	}
	if snap.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return nil, err
	}
	if snap.TotalValue, err = parseDecimal(valueStr); err != nil {
		return nil, err
	}
	if snap.TotalCostBasis, err = parseDecimal(costStr); err != nil {
		return nil, err
	}
	if snap.UnrealizedGainLoss, err = parseDecimal(unrealStr); err != nil {
		return nil, err
	}
	if snap.RealizedGainLoss, err = parseDecimal(realStr); err != nil {
		return nil, err
	}

	return &snap, nil
}
