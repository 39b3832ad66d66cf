package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
)

// TransactionRepository provides data access methods for the transactions table.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert appends a transaction and returns its generated ID. It accepts a
// Querier so sell inserts participate in the sell-processing transaction.
func (s *TransactionRepository) Insert(ctx context.Context, q Querier, t *model.Transaction) (int64, error) {
	query := `
		INSERT INTO transactions
		(timestamp, symbol, transaction_type, amount, price_per_unit,
		 total_value, fee, fee_currency, exchange, external_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := q.ExecContext(ctx, query,
		FormatTime(t.Timestamp),
		t.Symbol,
		string(t.Type),
		t.Amount.String(),
		t.PricePerUnit.String(),
		t.TotalValue.String(),
		t.Fee.String(),
		t.FeeCurrency,
		nullString(t.Exchange),
		nullString(t.ExternalID),
		nullString(t.Notes),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read transaction id: %w", err)
	}
	return id, nil
}

// Exists reports whether a transaction with the given external ID has been
// recorded. Importers call this before recording to stay idempotent.
func (s *TransactionRepository) Exists(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE external_id = ?`, externalID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query transactions by external id: %w", err)
	}
	return count > 0, nil
}

// Get retrieves a single transaction by its ID.
func (s *TransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, symbol, transaction_type, amount, price_per_unit,
		       total_value, fee, fee_currency, exchange, external_id, notes, created_at
		FROM transactions
		WHERE id = ?
	`, id)

	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves transaction history matching the filter, newest first.
func (s *TransactionRepository) List(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `
		SELECT id, timestamp, symbol, transaction_type, amount, price_per_unit,
		       total_value, fee, fee_currency, exchange, external_id, notes, created_at
		FROM transactions
		WHERE 1=1
	`
	var args []any

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Type != "" {
		query += " AND transaction_type = ?"
		args = append(args, string(filter.Type))
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, FormatTime(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, FormatTime(filter.EndDate))
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		t                              model.Transaction
		timestampStr, createdAtStr    string
		amountStr, priceStr, totalStr string
		feeStr                        string
		exchange, externalID, notes   sql.NullString
		txType                        string
	)

	err := row.Scan(
		&t.ID,
		&timestampStr,
		&t.Symbol,
		&txType,
		&amountStr,
		&priceStr,
		&totalStr,
		&feeStr,
		&t.FeeCurrency,
		&exchange,
		&externalID,
		&notes,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Type = model.TransactionType(txType)
	if t.Timestamp, err = ParseTime(timestampStr); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return nil, err
	}
	if t.Amount, err = parseDecimal(amountStr); err != nil {
		return nil, err
	}
	if t.PricePerUnit, err = parseDecimal(priceStr); err != nil {
		return nil, err
	}
	if t.TotalValue, err = parseDecimal(totalStr); err != nil {
		return nil, err
	}
	if t.Fee, err = parseDecimal(feeStr); err != nil {
		return nil, err
	}
	t.Exchange = exchange.String
	t.ExternalID = externalID.String
	t.Notes = notes.String

	return &t, nil
}

// nullString maps an empty string to NULL so partial unique indexes and
// optional columns behave.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
