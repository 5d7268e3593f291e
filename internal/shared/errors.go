package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Connectivity errors (fatal at startup)
	ErrSourceUnavailable  = fmt.Errorf("source database unavailable")
	ErrTargetUnavailable  = fmt.Errorf("target database unavailable")
	ErrStorageUnavailable = fmt.Errorf("object storage unavailable")

	// Per-record errors (recorded in the ledger, never fatal)
	ErrTargetWrite    = fmt.Errorf("target write failed")
	ErrAssetTransfer  = fmt.Errorf("asset transfer failed")
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Ledger errors
	ErrLedgerSave = fmt.Errorf("failed to save progress ledger")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
