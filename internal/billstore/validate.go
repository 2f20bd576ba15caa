package billstore

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/flateze/flateze/internal/model"
)

// MaxAmount is the exclusive upper bound on a bill amount.
var MaxAmount = decimal.NewFromInt(10000)

// ValidationError describes a single rule a bill breaks.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// Validate checks a bill before it is persisted.
func Validate(b model.Bill) []ValidationError {
	var errs []ValidationError

	if b.FlatID == "" {
		errs = append(errs, ValidationError{Field: "flat_id", Description: "empty"})
	}
	if b.Company == "" {
		errs = append(errs, ValidationError{Field: "company", Description: "empty"})
	}
	if !b.Type.Valid() {
		errs = append(errs, ValidationError{Field: "bill_type", Description: fmt.Sprintf("unknown type %q", b.Type)})
	}

	if !b.Amount.IsPositive() {
		errs = append(errs, ValidationError{Field: "amount", Description: fmt.Sprintf("%s is not positive", b.Amount)})
	}
	if b.Amount.GreaterThanOrEqual(MaxAmount) {
		errs = append(errs, ValidationError{Field: "amount", Description: fmt.Sprintf("%s is not below %s", b.Amount, MaxAmount)})
	}
	hundred := decimal.NewFromInt(100)
	if !b.Amount.Mul(hundred).Equal(b.Amount.Mul(hundred).Floor()) {
		errs = append(errs, ValidationError{Field: "amount", Description: fmt.Sprintf("%s has more than 2 decimal places", b.Amount)})
	}

	if b.BillDate.IsZero() {
		errs = append(errs, ValidationError{Field: "bill_date", Description: "zero"})
	}
	return errs
}

// ValidationErrors joins errs into one error, or returns nil.
func ValidationErrors(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("validation failed: %s", msg)
}
