// Package money implements the fixed-point monetary arithmetic used by the
// ledger: exactly 2 fractional digits, round half up.
package money

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value with 2 fractional digits. The zero value is
// 0.00 and ready to use. Amounts serialize as decimal strings with exactly
// two places ("99.60") in both JSON and the database.
type Amount struct {
	d decimal.Decimal
}

// Zero is the 0.00 amount.
var Zero = Amount{}

// New builds an Amount from integer units and cents, mainly for tests.
func New(units int64, cents int64) Amount {
	return Amount{d: decimal.New(units*100+cents, -2)}
}

// Parse converts a decimal string into an Amount. It fails when the string
// is not numeric or carries more than 2 fractional digits. Sign is not
// restricted here; callers enforce positivity where required.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return Amount{}, fmt.Errorf("invalid amount %q: more than 2 decimal places", s)
	}
	return Amount{d: d}, nil
}

// ParsePositive is Parse restricted to strictly positive amounts.
func ParsePositive(s string) (Amount, error) {
	a, err := Parse(s)
	if err != nil {
		return Amount{}, err
	}
	if !a.d.IsPositive() {
		return Amount{}, fmt.Errorf("amount %q must be positive", s)
	}
	return a, nil
}

// Round rounds an arbitrary-precision decimal half up to 2 places.
// Intermediate fee/tax computations carry full precision; only the rounded
// result is ever persisted.
func Round(d decimal.Decimal) Amount {
	return Amount{d: d.Round(2)}
}

// Decimal exposes the underlying decimal for arbitrary-precision math.
func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }

func (a Amount) IsZero() bool           { return a.d.IsZero() }
func (a Amount) IsNegative() bool       { return a.d.IsNegative() }
func (a Amount) IsPositive() bool       { return a.d.IsPositive() }
func (a Amount) Equal(b Amount) bool    { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }

// String formats the amount with exactly two fractional digits.
func (a Amount) String() string { return a.d.StringFixed(2) }

// MarshalJSON renders the amount as a quoted decimal string, e.g. "400.40".
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer, persisting the 2-place decimal string.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("could not scan amount: %w", err)
	}
	*a = Amount{d: d}
	return nil
}
