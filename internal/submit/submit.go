package submit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"garabu.org/internal/auth"
	"garabu.org/internal/ledger"
	"garabu.org/internal/ledger/remote"
	"garabu.org/internal/obs"
	"garabu.org/internal/push"
	"garabu.org/internal/store"
	"garabu.org/internal/stream"
)

// API is the slice of the backend client the submission flow depends on.
type API interface {
	CreateLedger(ctx context.Context, in remote.LedgerCreate, idemKey string) (ledger.Entry, error)
	CreateTransfer(ctx context.Context, in remote.TransferCreate, idemKey string) (ledger.Transfer, error)
	AdjustBalance(ctx context.Context, assetID, amount int64, op ledger.BalanceOp) (ledger.Asset, error)
}

// Notifier broadcasts a sync event after a successful mutation.
type Notifier interface {
	SendUpdate(ctx context.Context, evt stream.Event) error
}

// Pusher alerts other book members about a new transaction.
type Pusher interface {
	SendNewTransactionAlert(ctx context.Context, actorUserID string, s push.Summary) error
}

// Flow coordinates one transaction submission: validation, the primary
// create call, the follow-on balance mutation, and the best-effort sync and
// push signals. There is no transaction boundary across these calls; the
// primary guarantee is "the money was recorded", and a failed secondary
// effect leaves a momentary inconsistency that the backend's history
// resolves on the next fetch.
type Flow struct {
	api    API
	store  *store.Store
	local  *stream.Stream // nil disables local fan-out
	notify Notifier       // nil disables sync broadcast
	push   Pusher         // nil disables push alerts

	now func() time.Time
}

// New wires a submission flow. Store is required; local stream, notifier and
// pusher may be nil.
func New(api API, st *store.Store, local *stream.Stream, notify Notifier, pusher Pusher) *Flow {
	return &Flow{
		api:    api,
		store:  st,
		local:  local,
		notify: notify,
		push:   pusher,
		now:    time.Now,
	}
}

// Result is the user-visible outcome of a successful submission.
type Result struct {
	Entry    ledger.Entry    // set for ledger-backed outcomes
	Transfer ledger.Transfer // set for two-sided transfers
	Asset    ledger.Asset    // post-mutation snapshot when a balance call succeeded

	// BalanceSettled is false when the follow-on balance mutation failed.
	// The submission still counts as a success: the entry exists on the
	// backend and the asset balance catches up on the next refetch.
	BalanceSettled bool
}

// Submit validates the form and performs the create plus its side effects.
// Validation failures and primary-create failures return an error before or
// instead of partial success; secondary-effect failures are logged and
// absorbed.
func (f *Flow) Submit(ctx context.Context, form Form) (Result, error) {
	parsed, err := form.validate(f.now())
	if err != nil {
		obs.CountSubmission(string(form.Kind), "invalid")
		return Result{}, err
	}

	actor, _ := auth.PrincipalFromContext(ctx)

	var res Result
	switch {
	case form.Kind == KindTransfer && form.FromAssetID != 0 && form.ToAssetID != 0:
		res, err = f.submitTwoSidedTransfer(ctx, form, parsed, actor)
	case form.Kind == KindTransfer:
		res, err = f.submitOneSidedTransfer(ctx, form, parsed, actor)
	default:
		res, err = f.submitEntry(ctx, form, parsed, actor)
	}
	if err != nil {
		obs.CountSubmission(string(form.Kind), "failed")
		return Result{}, err
	}

	f.signal(ctx, form, res, actor)
	obs.CountSubmission(string(form.Kind), "ok")
	return res, nil
}

func (f *Flow) submitEntry(ctx context.Context, form Form, parsed parsedForm, actor auth.Principal) (Result, error) {
	amountType := ledger.Expense
	if form.Kind == KindIncome {
		amountType = ledger.Income
	}
	entry, err := f.api.CreateLedger(ctx, remote.LedgerCreate{
		BookID:      form.BookID,
		Date:        parsed.date,
		Amount:      parsed.amount,
		Description: strings.TrimSpace(form.Description),
		Memo:        strings.TrimSpace(form.Memo),
		AmountType:  amountType,
		Category:    strings.TrimSpace(form.Category),
		Payment:     strings.TrimSpace(form.Payment),
		Spender:     f.spender(form, actor),
		TagIDs:      form.TagIDs,
		Currency:    strings.TrimSpace(form.Currency),
	}, uuid.NewString())
	if err != nil {
		return Result{}, err
	}

	res := Result{Entry: entry, BalanceSettled: true}
	if form.AssetID != 0 {
		op := ledger.Subtract
		if amountType == ledger.Income {
			op = ledger.Add
		}
		f.adjustBalance(ctx, &res, form.BookID, form.AssetID, parsed.amount, op)
	}
	f.store.UpsertEntry(entry)
	return res, nil
}

func (f *Flow) submitTwoSidedTransfer(ctx context.Context, form Form, parsed parsedForm, actor auth.Principal) (Result, error) {
	transfer, err := f.api.CreateTransfer(ctx, remote.TransferCreate{
		BookID:      form.BookID,
		Date:        parsed.date,
		Amount:      parsed.amount,
		Description: strings.TrimSpace(form.Description),
		Memo:        strings.TrimSpace(form.Memo),
		FromAssetID: form.FromAssetID,
		ToAssetID:   form.ToAssetID,
		Transferer:  f.spender(form, actor),
	}, uuid.NewString())
	if err != nil {
		return Result{}, err
	}

	// Both sides were applied atomically server-side; mirror the deltas on
	// the local snapshots so balance screens stay current.
	f.store.AdjustAssetLocal(form.BookID, form.FromAssetID, -parsed.amount)
	f.store.AdjustAssetLocal(form.BookID, form.ToAssetID, parsed.amount)

	return Result{Transfer: transfer, BalanceSettled: true}, nil
}

// submitOneSidedTransfer degrades a transfer with a single tracked side into
// a synthesized ledger entry plus a manual balance mutation. The backend has
// no one-sided transfer primitive; the entry's category marks the movement
// as a withdrawal or deposit against the asset.
func (f *Flow) submitOneSidedTransfer(ctx context.Context, form Form, parsed parsedForm, actor auth.Principal) (Result, error) {
	assetID := form.FromAssetID
	assetName := form.FromAssetName
	category := ledger.CategoryWithdrawal
	amountType := ledger.Expense
	op := ledger.Subtract
	if assetID == 0 {
		assetID = form.ToAssetID
		assetName = form.ToAssetName
		category = ledger.CategoryDeposit
		amountType = ledger.Income
		op = ledger.Add
	}

	entry, err := f.api.CreateLedger(ctx, remote.LedgerCreate{
		BookID:      form.BookID,
		Date:        parsed.date,
		Amount:      parsed.amount,
		Description: strings.TrimSpace(form.Description),
		Memo:        strings.TrimSpace(form.Memo),
		AmountType:  amountType,
		Category:    category,
		Payment:     strings.TrimSpace(assetName),
		Spender:     f.spender(form, actor),
	}, uuid.NewString())
	if err != nil {
		return Result{}, err
	}

	res := Result{Entry: entry, BalanceSettled: true}
	f.adjustBalance(ctx, &res, form.BookID, assetID, parsed.amount, op)
	f.store.UpsertEntry(entry)
	return res, nil
}

// adjustBalance applies the delta and absorbs failure: the ledger entry
// already exists on the backend and there is no distributed rollback, so a
// failed mutation is logged and the balance reconverges on the next fetch.
func (f *Flow) adjustBalance(ctx context.Context, res *Result, bookID, assetID, amount int64, op ledger.BalanceOp) {
	asset, err := f.api.AdjustBalance(ctx, assetID, amount, op)
	if err != nil {
		res.BalanceSettled = false
		obs.CountSecondaryFailure("balance")
		_ = obs.Event("submit.balance_failed", map[string]any{
			"asset_id":  assetID,
			"operation": string(op),
			"error":     err.Error(),
		})
		return
	}
	if asset.BookID == 0 {
		asset.BookID = bookID
	}
	res.Asset = asset
	f.store.ApplyAsset(asset)
}

// signal fires the fire-and-forget side effects: local fan-out, the sync
// broadcast, and the push alert. None of them may fail the submission or
// delay the success confirmation beyond their own calls.
func (f *Flow) signal(ctx context.Context, form Form, res Result, actor auth.Principal) {
	eventType := stream.EventLedgerCreated
	var payload any = res.Entry
	if res.Transfer.ID != 0 {
		eventType = stream.EventTransferCreated
		payload = res.Transfer
	}

	evt, err := stream.NewEvent(eventType, form.BookID, actor.UserID, payload)
	if err == nil {
		if f.local != nil {
			f.local.Publish(evt)
		}
		if f.notify != nil {
			if err := f.notify.SendUpdate(ctx, evt); err != nil {
				obs.CountSecondaryFailure("sync")
				_ = obs.Event("submit.sync_failed", map[string]any{
					"book_id": form.BookID,
					"error":   err.Error(),
				})
			}
		}
	}

	if f.push != nil {
		summary := push.Summary{
			BookID:      form.BookID,
			Description: strings.TrimSpace(form.Description),
			Currency:    strings.TrimSpace(form.Currency),
		}
		if res.Transfer.ID != 0 {
			summary.Amount = res.Transfer.Amount
		} else {
			summary.Amount = res.Entry.Amount
			summary.AmountType = res.Entry.AmountType
		}
		if err := f.push.SendNewTransactionAlert(ctx, actor.UserID, summary); err != nil {
			obs.CountSecondaryFailure("push")
			_ = obs.Event("submit.push_failed", map[string]any{
				"book_id": form.BookID,
				"error":   err.Error(),
			})
		}
	}
}

// spender resolves the recorded spender/transferer: the form value when
// present, otherwise the current user's display name. Always a string, never
// null, per the backend convention.
func (f *Flow) spender(form Form, actor auth.Principal) string {
	if s := strings.TrimSpace(form.Spender); s != "" {
		return s
	}
	return actor.Name
}
