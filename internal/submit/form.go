package submit

import (
	"errors"
	"strings"
	"time"

	"garabu.org/internal/ledger"
)

// Kind selects which transaction the form records.
type Kind string

const (
	KindIncome   Kind = "INCOME"
	KindExpense  Kind = "EXPENSE"
	KindTransfer Kind = "TRANSFER"
)

// Form carries the raw values of the add-transaction screen. Amount and
// date stay strings until validation; everything else is already resolved
// by the pickers feeding the form.
type Form struct {
	Kind   Kind
	BookID int64

	Amount      string // may contain grouping separators, e.g. "12,000"
	Description string
	Memo        string
	Date        string // "2006-01-02"

	// Income/expense fields.
	Category string
	Payment  string // payment method display name
	AssetID  int64  // asset behind Payment, 0 when untracked
	Spender  string
	TagIDs   []int64
	Currency string // blank = book's base currency

	// Transfer fields. Zero means the side is not set.
	FromAssetID   int64
	ToAssetID     int64
	FromAssetName string
	ToAssetName   string
}

// ValidationError names every missing or invalid field at once, so the
// screen renders one message and can scroll to the first offending field.
type ValidationError struct {
	Fields  []string          // in form order
	Reasons map[string]string // field -> reason
}

func (e *ValidationError) Error() string {
	return "invalid form: " + strings.Join(e.Fields, ", ")
}

// First returns the first offending field.
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0]
}

type fieldErrors struct {
	fields  []string
	reasons map[string]string
}

func (f *fieldErrors) add(field, reason string) {
	if f.reasons == nil {
		f.reasons = make(map[string]string)
	}
	if _, ok := f.reasons[field]; ok {
		return
	}
	f.fields = append(f.fields, field)
	f.reasons[field] = reason
}

func (f *fieldErrors) err() error {
	if len(f.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: f.fields, Reasons: f.reasons}
}

type parsedForm struct {
	amount int64
	date   ledger.Date
}

// validate checks the whole form and aggregates every failure rather than
// stopping at the first one.
func (f *Form) validate(now time.Time) (parsedForm, error) {
	var p parsedForm
	var errs fieldErrors

	if strings.TrimSpace(f.Amount) == "" {
		errs.add("amount", "required")
	} else {
		amount, err := ledger.ParseAmount(f.Amount)
		if err != nil {
			errs.add("amount", "must be a positive number")
		} else {
			p.amount = amount
		}
	}

	if strings.TrimSpace(f.Description) == "" {
		errs.add("description", "required")
	}

	if strings.TrimSpace(f.Date) == "" {
		errs.add("date", "required")
	} else {
		date, err := ledger.ParseDate(f.Date, now)
		switch {
		case errors.Is(err, ledger.ErrFutureDate):
			errs.add("date", "must not be in the future")
		case err != nil:
			errs.add("date", "must be a valid date")
		default:
			p.date = date
		}
	}

	switch f.Kind {
	case KindIncome, KindExpense:
		if strings.TrimSpace(f.Category) == "" {
			errs.add("category", "required")
		}
		if strings.TrimSpace(f.Payment) == "" {
			errs.add("payment", "required")
		}
	case KindTransfer:
		// Transfer mode does not use category/payment; only the asset
		// endpoints matter here.
		switch {
		case f.FromAssetID == 0 && f.ToAssetID == 0:
			errs.add("asset", "at least one asset is required")
		case f.FromAssetID != 0 && f.FromAssetID == f.ToAssetID:
			errs.add("asset", "assets must differ")
		}
	default:
		errs.add("kind", "unknown transaction type")
	}

	return p, errs.err()
}
