package core

import (
	"fmt"
	"strings"
	"time"
)

const maxDescriptionLength = 200

// Validate applies the rules of the transaction form: every field the user
// types must be present, the date must be a calendar date and the amount
// must be positive. Ledger operations never call it.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrValidation)
	}
	if len(in.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, maxDescriptionLength)
	}
	if in.Amount == nil {
		return fmt.Errorf("%w: empty amount", ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: empty category", ErrValidation)
	}
	if strings.TrimSpace(in.Date) == "" {
		return fmt.Errorf("%w: empty date", ErrValidation)
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, in.Date)
	}
	if in.Type != "" && !in.Type.IsValid() {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidType)
	}
	if in.Status != "" && !in.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, in.Status)
	}
	return nil
}

// DefaultFormDate is the date the form proposes for a month: today when the
// month is the current one, otherwise its first day.
func DefaultFormDate(monthID string, now time.Time) string {
	today := Today(now)
	if MonthKey(today) == monthID {
		return today
	}
	return monthID + "-01"
}
