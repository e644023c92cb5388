package ledger

import "errors"

// Sentinel errors returned by engine operations. Callers classify with
// errors.Is; anything not matching one of these is a store or internal
// fault.
var (
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrNoPriceData        = errors.New("no price data available")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// IsClientError reports whether err is a validation or business-rule
// rejection rather than a store/internal fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSymbol) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrNoPriceData) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientShares)
}
