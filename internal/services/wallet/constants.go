package wallet

// Default configuration values. Money is integer cents throughout.
const (
	DefaultCurrency           = "USD"
	DefaultMaxDepositCents    = 500_000   // $5,000 per deposit
	DefaultMaxWithdrawalCents = 1_000_000 // $10,000 per withdrawal
)
