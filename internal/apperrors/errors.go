package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrLotNotFound indicates that a cost basis lot with the given ID does not exist.
	ErrLotNotFound = errors.New("cost basis lot not found")

	// ErrNoOpenLots indicates that a symbol has no open cost basis lots.
	ErrNoOpenLots = errors.New("no open cost basis lots")

	// ErrSnapshotNotFound indicates that no portfolio snapshot exists for the requested range.
	ErrSnapshotNotFound = errors.New("portfolio snapshot not found")

	// ErrSettingNotFound indicates that a system setting key has not been stored.
	ErrSettingNotFound = errors.New("system setting not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidAmount indicates that a transaction amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidPrice indicates that a price per unit is negative.
	ErrInvalidPrice = errors.New("price per unit cannot be negative")

	// ErrInvalidFee indicates that a fee is negative.
	ErrInvalidFee = errors.New("fee cannot be negative")

	// ErrInvalidTransactionType indicates a transaction type other than BUY or SELL.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidAccountingMethod indicates an unsupported accounting method.
	// SPECIFIC_ID in particular is recognised but not supported.
	ErrInvalidAccountingMethod = errors.New("invalid accounting method")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrOversell indicates that a sell exceeded the open lot coverage for the
	// symbol. The matched portion is still committed; the unmatched remainder
	// is reported alongside this error so callers can decide how to treat it.
	ErrOversell = errors.New("sell amount exceeds open lot coverage")

	// ErrDuplicateTransaction indicates that a transaction with the same
	// external ID has already been recorded.
	ErrDuplicateTransaction = errors.New("duplicate external transaction")
)

// Collaborator errors represent failures of external dependencies. They are
// absorbed where a degraded answer is possible (cost-basis-only views) and
// propagated otherwise.
var (
	// ErrPriceUnavailable indicates that the price feed could not supply a
	// current price for a symbol (rate limiting, unknown symbol, outage).
	ErrPriceUnavailable = errors.New("current price unavailable")
)

// Data integrity errors represent inconsistencies or missing data.
var (
	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)

// Operation failure errors represent system-level failures when retrieving or
// processing data.
var (
	ErrFailedToRecordTransaction   = errors.New("failed to record transaction")
	ErrFailedToRetrieveTransaction = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveLots        = errors.New("failed to retrieve cost basis lots")
	ErrFailedToCalculatePnL        = errors.New("failed to calculate P&L")
	ErrFailedToGenerateTaxReport   = errors.New("failed to generate tax report")
	ErrFailedToSaveSnapshot        = errors.New("failed to save portfolio snapshot")
	ErrFailedToRetrieveSnapshots   = errors.New("failed to retrieve portfolio snapshots")
	ErrFailedToGetVersionInfo      = errors.New("failed to get version information")
)
