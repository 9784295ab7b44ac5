package transfer

import "errors"

// Service errors. ErrInsufficientFunds is recoverable and user-facing;
// an integrity failure surfaces as repositories.ErrIntegrity and is
// never retried.
var (
	ErrInvalidAmount     = errors.New("amount must be a positive number of cents")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCurrencyMismatch  = errors.New("wallet currencies do not match")
	ErrWalletLocked      = errors.New("wallet is locked")
)
