package ledger

import (
	"errors"
	"time"
)

// Amounts are integer minor units (e.g. KRW won, USD cents). No floats.

// AmountType classifies a ledger entry.
type AmountType string

const (
	Income  AmountType = "INCOME"
	Expense AmountType = "EXPENSE"
)

// BalanceOp is the direction of an asset balance adjustment. Balances are
// mutated only through explicit ADD/SUBTRACT deltas tied to an entry or
// transfer, never overwritten.
type BalanceOp string

const (
	Add      BalanceOp = "ADD"
	Subtract BalanceOp = "SUBTRACT"
)

// Category markers synthesized for one-sided transfers, where the backend
// has no one-sided transfer primitive and the movement is recorded as a
// plain ledger entry against the tracked asset.
const (
	CategoryWithdrawal = "withdrawal"
	CategoryDeposit    = "deposit"
)

// Book is a household-ledger container shared by its members.
type Book struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Currency string `json:"currency"` // base currency code
	OwnerID  string `json:"ownerId"`
}

// Entry is a single income or expense record, owned by a book.
type Entry struct {
	ID          int64      `json:"id"`
	BookID      int64      `json:"bookId"`
	Date        Date       `json:"date"`
	Amount      int64      `json:"amount"` // minor units, > 0
	Description string     `json:"description"`
	Memo        string     `json:"memo"`
	AmountType  AmountType `json:"amountType"`
	Category    string     `json:"category"`
	Payment     string     `json:"payment"`
	Spender     string     `json:"spender"`
	TagIDs      []int64    `json:"tagIds,omitempty"`
	Currency    string     `json:"currency,omitempty"`
}

// Transfer moves funds between two assets of the same book without touching
// income/expense totals. At least one asset side is set; when both are set
// they must differ and the backend applies both sides atomically.
type Transfer struct {
	ID          int64  `json:"id"`
	BookID      int64  `json:"bookId"`
	Date        Date   `json:"date"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Memo        string `json:"memo"`
	FromAssetID int64  `json:"fromAssetId,omitempty"`
	ToAssetID   int64  `json:"toAssetId,omitempty"`
	Transferer  string `json:"transferer"`
}

// Asset is a named store of value with a running balance in minor units.
type Asset struct {
	ID      int64  `json:"id"`
	BookID  int64  `json:"bookId"`
	Name    string `json:"name"`
	Type    string `json:"assetType"`
	Balance int64  `json:"balance"`
	Active  bool   `json:"isActive"`
}

// Category is a user-defined grouping for entries.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PaymentMethod is how an entry was paid. When it is backed by a tracked
// asset, AssetID links to it and submissions adjust that asset's balance.
type PaymentMethod struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	AssetID int64  `json:"assetId,omitempty"`
}

// Tag labels entries across categories.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAmount = errors.New("invalid amount (must be > 0)")
	ErrFutureDate    = errors.New("date must not be in the future")
	ErrSameAsset     = errors.New("transfer assets must differ")
	ErrNoAsset       = errors.New("transfer requires at least one asset")
)

// Date is a calendar date carried as "2006-01-02" on the wire.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date (in the time's location).
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == `""` || s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = Date{t: t}
	return nil
}
