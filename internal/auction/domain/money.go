package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every stored amount keeps
const MoneyScale = 2

// maxMoney is the first value a NUMERIC(12,2) column cannot hold
var maxMoney = decimal.New(1, 10)

// moneyProblem describes why d is not a storable amount, "" when it is.
// Sub-cent digits are rejected instead of rounded, the store would round them
// and two different accepted bids could end up with the same stored amount.
func moneyProblem(d decimal.Decimal) string {
	switch {
	case !d.IsPositive():
		return "must be greater than zero"
	case !d.Equal(d.Truncate(MoneyScale)):
		return fmt.Sprintf("must have at most %d decimal places", MoneyScale)
	case d.GreaterThanOrEqual(maxMoney):
		return "must be lower than " + maxMoney.StringFixed(MoneyScale)
	}
	return ""
}

// ValidateAmount checks a bid amount before any store access
func ValidateAmount(amount decimal.Decimal) error {
	if why := moneyProblem(amount); why != "" {
		return fmt.Errorf("%w: amount %s %s", ErrInvalidAmount, amount, why)
	}
	return nil
}
