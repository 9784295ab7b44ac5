package wallet

import "errors"

// Service errors
var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrLimitExceeded  = errors.New("amount exceeds the allowed limit")
	ErrWalletNotFound = errors.New("wallet not found")
)
