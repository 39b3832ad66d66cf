package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/model"
)

// RealizedPnLRepository provides data access methods for the realized_pnl
// table. Entries are written once during sell matching and never mutated.
type RealizedPnLRepository struct {
	db *sql.DB
}

// NewRealizedPnLRepository creates a new RealizedPnLRepository with the provided database connection.
func NewRealizedPnLRepository(db *sql.DB) *RealizedPnLRepository {
	return &RealizedPnLRepository{db: db}
}

// Insert records one lot consumption and returns its generated ID. It accepts
// a Querier so inserts participate in the sell-processing transaction.
func (s *RealizedPnLRepository) Insert(ctx context.Context, q Querier, entry *model.RealizedPnL) (int64, error) {
	query := `
		INSERT INTO realized_pnl
		(sell_transaction_id, lot_id, symbol, amount, cost_basis,
		 sale_price, sale_value, realized_gain_loss, accounting_method, sale_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := q.ExecContext(ctx, query,
		entry.SellTransactionID,
		entry.LotID,
		entry.Symbol,
		entry.Amount.String(),
		entry.CostBasis.String(),
		entry.SalePrice.String(),
		entry.SaleValue.String(),
		entry.RealizedGainLoss.String(),
		string(entry.AccountingMethod),
		FormatTime(entry.SaleDate),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert realized pnl entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read realized pnl id: %w", err)
	}
	return id, nil
}

// List retrieves realized P&L entries matching the filter, oldest first.
func (s *RealizedPnLRepository) List(ctx context.Context, filter model.RealizedPnLFilter) ([]model.RealizedPnL, error) {
	query := `
		SELECT id, sell_transaction_id, lot_id, symbol, amount, cost_basis,
		       sale_price, sale_value, realized_gain_loss, accounting_method, sale_date
		FROM realized_pnl
		WHERE 1=1
	`
	var args []any

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND sale_date >= ?"
		args = append(args, FormatTime(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND sale_date <= ?"
		args = append(args, FormatTime(filter.EndDate))
	}

	query += " ORDER BY sale_date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized pnl: %w", err)
	}
	defer rows.Close()

	return collectRealized(rows)
}

// Sum aggregates realized gain/loss and trade count over entries matching the
// filter. Summation happens in Go to preserve decimal exactness.
func (s *RealizedPnLRepository) Sum(ctx context.Context, filter model.RealizedPnLFilter) (model.RealizedPnLSummary, error) {
	entries, err := s.List(ctx, filter)
	if err != nil {
		return model.RealizedPnLSummary{}, err
	}

	summary := model.RealizedPnLSummary{TotalRealizedPnL: decimal.Zero}
	for _, e := range entries {
		summary.TotalRealizedPnL = summary.TotalRealizedPnL.Add(e.RealizedGainLoss)
		summary.TradeCount++
	}
	return summary, nil
}

// ListForTaxYear retrieves the realized entries within a calendar year
// recorded under the given accounting method.
func (s *RealizedPnLRepository) ListForTaxYear(ctx context.Context, year int, method model.AccountingMethod) ([]model.RealizedPnL, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	query := `
		SELECT id, sell_transaction_id, lot_id, symbol, amount, cost_basis,
		       sale_price, sale_value, realized_gain_loss, accounting_method, sale_date
		FROM realized_pnl
		WHERE sale_date >= ? AND sale_date <= ? AND accounting_method = ?
		ORDER BY symbol ASC, sale_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, FormatTime(start), FormatTime(end), string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to query realized pnl for tax year: %w", err)
	}
	defer rows.Close()

	return collectRealized(rows)
}

func collectRealized(rows *sql.Rows) ([]model.RealizedPnL, error) {
	entries := []model.RealizedPnL{}
	for rows.Next() {
		var (
			e                                     model.RealizedPnL
			amountStr, basisStr, priceStr         string
			valueStr, gainStr, methodStr, dateStr string
		)

		err := rows.Scan(
			&e.ID,
			&e.SellTransactionID,
			&e.LotID,
			&e.Symbol,
			&amountStr,
			&basisStr,
			&priceStr,
			&valueStr,
			&gainStr,
			&methodStr,
			&dateStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realized pnl entry: %w", err)
		}

		if e.Amount, err = parseDecimal(amountStr); err != nil {
			return nil, err
		}
		if e.CostBasis, err = parseDecimal(basisStr); err != nil {
			return nil, err
		}
		if e.SalePrice, err = parseDecimal(priceStr); err != nil {
			return nil, err
		}
		if e.SaleValue, err = parseDecimal(valueStr); err != nil {
			return nil, err
		}
		if e.RealizedGainLoss, err = parseDecimal(gainStr); err != nil {
			return nil, err
		}
		e.AccountingMethod = model.AccountingMethod(methodStr)
		if e.SaleDate, err = ParseTime(dateStr); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized pnl: %w", err)
	}

	return entries, nil
}
