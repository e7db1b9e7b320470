package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Fixed    TransactionType = "FIXED"
	Variable TransactionType = "VARIABLE"
	Income   TransactionType = "INCOME"
)

const (
	Paid    Status = "PAID"
	Pending Status = "PENDING"
	Late    Status = "LATE"
)

// DateLayout is the wire and storage form of a transaction date.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Status string

	Transaction struct {
		ID            string          `json:"id"`
		Description   string          `json:"description"`
		Category      string          `json:"category"`
		Amount        decimal.Decimal `json:"amount"`
		Status        Status          `json:"status"`
		PaymentMethod string          `json:"paymentMethod"`
		Date          string          `json:"date"` // YYYY-MM-DD
		Type          TransactionType `json:"type"`
	}

	// TransactionInput is a partial transaction. Zero values mean "not provided".
	TransactionInput struct {
		Description   string
		Category      string
		Amount        *decimal.Decimal
		Status        Status
		PaymentMethod string
		Date          string
		Type          TransactionType
	}

	MonthData struct {
		ID   string `json:"id"` // YYYY-MM
		Name string `json:"name"`
		Year int    `json:"year"`
	}

	// CategoryMap holds the ordered category names of each transaction type.
	CategoryMap map[TransactionType][]string

	// CategoryIconMap maps a category name to an icon id. Keyed by name only,
	// so equal names in different types share one icon.
	CategoryIconMap map[string]string

	// Snapshot is the bundle exchanged with the snapshot store. Nil
	// collections mean "absent" when loading.
	Snapshot struct {
		Transactions []Transaction `json:"transactions"`
		Categories   CategoryMap   `json:"categories"`
		Months       []MonthData   `json:"months"`
		LastUpdated  time.Time     `json:"lastUpdated"`
	}
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrMonthExists  = errors.New("month already exists")
	ErrLastMonth    = errors.New("at least one month must be kept")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidType  = errors.New("invalid transaction type")
)

// Types lists the transaction types in display order.
func Types() []TransactionType {
	return []TransactionType{Fixed, Variable, Income}
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Fixed, Variable, Income:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	switch s {
	case Paid, Pending, Late:
		return true
	default:
		return false
	}
}

// ParseType converts user input into a TransactionType, case-insensitively.
func ParseType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// MonthKey returns the YYYY-MM prefix of a date string.
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// Today returns now as a transaction date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// Clone returns a deep copy of the category map.
func (m CategoryMap) Clone() CategoryMap {
	if m == nil {
		return nil
	}
	out := make(CategoryMap, len(m))
	for t, names := range m {
		out[t] = append([]string(nil), names...)
	}
	return out
}

// Contains reports whether name is listed under t.
func (m CategoryMap) Contains(t TransactionType, name string) bool {
	for _, n := range m[t] {
		if n == name {
			return true
		}
	}
	return false
}

func (m CategoryIconMap) Clone() CategoryIconMap {
	out := make(CategoryIconMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns a snapshot that shares no slices or maps with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{LastUpdated: s.LastUpdated}
	if s.Transactions != nil {
		out.Transactions = append([]Transaction(nil), s.Transactions...)
	}
	if s.Months != nil {
		out.Months = append([]MonthData(nil), s.Months...)
	}
	out.Categories = s.Categories.Clone()
	return out
}
