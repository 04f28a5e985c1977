package credit

import "errors"

var (
	// ErrInsufficientCredit is returned when requested credit exceeds the balance
	ErrInsufficientCredit = errors.New("insufficient credit balance")

	// ErrInvalidAmount is returned when a requested amount is negative
	ErrInvalidAmount = errors.New("invalid amount: must not be negative")
)
