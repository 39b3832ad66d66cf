package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/model"
)

// LotRepository provides data access methods for the cost_basis_lots table.
// Lots are only ever inserted, reduced, or closed; closed lots remain as the
// audit trail for the realized P&L entries that reference them.
type LotRepository struct {
	db *sql.DB
}

// NewLotRepository creates a new LotRepository with the provided database connection.
func NewLotRepository(db *sql.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Insert opens a new lot for a buy transaction and returns its generated ID.
func (s *LotRepository) Insert(ctx context.Context, q Querier, lot *model.CostBasisLot) (int64, error) {
	query := `
		INSERT INTO cost_basis_lots
		(transaction_id, symbol, amount, cost_per_unit, total_cost, fee, purchase_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := q.ExecContext(ctx, query,
		lot.TransactionID,
		lot.Symbol,
		lot.Amount.String(),
		lot.CostPerUnit.String(),
		lot.TotalCost.String(),
		lot.Fee.String(),
		FormatTime(lot.PurchaseDate),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cost basis lot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read lot id: %w", err)
	}
	return id, nil
}

// GetOpenLots retrieves the open lots for a symbol ordered by purchase date
// then lot ID ascending. Matching strategies reorder in memory as needed.
func (s *LotRepository) GetOpenLots(ctx context.Context, q Querier, symbol string) ([]model.CostBasisLot, error) {
	query := `
		SELECT id, transaction_id, symbol, amount, cost_per_unit, total_cost,
		       fee, purchase_date, is_closed, closed_date
		FROM cost_basis_lots
		WHERE symbol = ? AND is_closed = 0
		ORDER BY purchase_date ASC, id ASC
	`

	rows, err := q.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query open lots: %w", err)
	}
	defer rows.Close()

	return collectLots(rows)
}

// GetAllOpenLots retrieves every open lot, grouped by symbol then purchase date.
func (s *LotRepository) GetAllOpenLots(ctx context.Context) ([]model.CostBasisLot, error) {
	query := `
		SELECT id, transaction_id, symbol, amount, cost_per_unit, total_cost,
		       fee, purchase_date, is_closed, closed_date
		FROM cost_basis_lots
		WHERE is_closed = 0
		ORDER BY symbol ASC, purchase_date ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open lots: %w", err)
	}
	defer rows.Close()

	return collectLots(rows)
}

// Reduce applies a partial consumption to a lot.
func (s *LotRepository) Reduce(ctx context.Context, q Querier, lotID int64, newAmount, newTotalCost decimal.Decimal) error {
	_, err := q.ExecContext(ctx, `
		UPDATE cost_basis_lots
		SET amount = ?, total_cost = ?
		WHERE id = ?
	`, newAmount.String(), newTotalCost.String(), lotID)
	if err != nil {
		return fmt.Errorf("failed to reduce lot %d: %w", lotID, err)
	}
	return nil
}

// Close marks a fully consumed lot as closed. Closed lots never reopen.
func (s *LotRepository) Close(ctx context.Context, q Querier, lotID int64, closedDate time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE cost_basis_lots
		SET amount = '0', total_cost = '0', is_closed = 1, closed_date = ?
		WHERE id = ?
	`, FormatTime(closedDate), lotID)
	if err != nil {
		return fmt.Errorf("failed to close lot %d: %w", lotID, err)
	}
	return nil
}

// OpenPosition sums the open lots of one symbol. The returned amount and cost
// are zero when the symbol has no open lots.
func (s *LotRepository) OpenPosition(ctx context.Context, symbol string) (amount, totalCost decimal.Decimal, err error) {
	// Amounts are stored as decimal strings; SQLite SUM would coerce them to
	// floats, so the summation happens in Go.
	lots, err := s.GetOpenLots(ctx, s.db, symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	amount, totalCost = decimal.Zero, decimal.Zero
	for _, lot := range lots {
		amount = amount.Add(lot.Amount)
		totalCost = totalCost.Add(lot.TotalCost)
	}
	return amount, totalCost, nil
}

// OpenSymbols lists the symbols that currently have open lots.
func (s *LotRepository) OpenSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM cost_basis_lots WHERE is_closed = 0 ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}
	return symbols, nil
}

// CostBasisBySymbol aggregates the open lots of every held symbol.
func (s *LotRepository) CostBasisBySymbol(ctx context.Context) (map[string]model.CostBasisSummary, error) {
	lots, err := s.GetAllOpenLots(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]model.CostBasisSummary)
	for _, lot := range lots {
		summary := summaries[lot.Symbol]
		summary.Symbol = lot.Symbol
		summary.Amount = summary.Amount.Add(lot.Amount)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(lot.TotalCost)
		summaries[lot.Symbol] = summary
	}
	for symbol, summary := range summaries {
		if summary.Amount.IsPositive() {
			summary.AvgCostPerUnit = summary.TotalCostBasis.Div(summary.Amount)
		}
		summaries[symbol] = summary
	}

	return summaries, nil
}

func collectLots(rows *sql.Rows) ([]model.CostBasisLot, error) {
	lots := []model.CostBasisLot{}
	for rows.Next() {
		var (
			lot                        model.CostBasisLot
			amountStr, cpuStr, costStr string
			feeStr, purchaseStr        string
			closedDate                 sql.NullString
		)

		err := rows.Scan(
			&lot.ID,
			&lot.TransactionID,
			&lot.Symbol,
			&amountStr,
			&cpuStr,
			&costStr,
			&feeStr,
			&purchaseStr,
			&lot.IsClosed,
			&closedDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost basis lot: %w", err)
		}

		if lot.Amount, err = parseDecimal(amountStr); err != nil {
			return nil, err
		}
		if lot.CostPerUnit, err = parseDecimal(cpuStr); err != nil {
			return nil, err
		}
		if lot.TotalCost, err = parseDecimal(costStr); err != nil {
			return nil, err
		}
		if lot.Fee, err = parseDecimal(feeStr); err != nil {
			return nil, err
		}
		if lot.PurchaseDate, err = ParseTime(purchaseStr); err != nil {
			return nil, err
		}
		if closedDate.Valid {
			t, err := ParseTime(closedDate.String)
			if err != nil {
				return nil, err
			}
			lot.ClosedDate = &t
		}

		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cost basis lots: %w", err)
	}
	return lots, nil
}
