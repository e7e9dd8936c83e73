package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"garabu.org/internal/ledger"
	"garabu.org/internal/obs"
	"garabu.org/internal/stream"
)

// Store is the client-side source of truth for the lists the screens render
// from: ledger entries and asset snapshots per book. All mutation goes
// through its methods; accessors return copies so no screen holds a stale
// shared slice.
type Store struct {
	mu    sync.RWMutex
	books map[int64]*bookState
}

type bookState struct {
	order  []int64 // entry ids, newest first
	byID   map[int64]ledger.Entry
	assets map[int64]ledger.Asset
}

// New creates an empty store.
func New() *Store {
	return &Store{books: make(map[int64]*bookState)}
}

func (s *Store) book(bookID int64) *bookState {
	b, ok := s.books[bookID]
	if !ok {
		b = &bookState{
			byID:   make(map[int64]ledger.Entry),
			assets: make(map[int64]ledger.Asset),
		}
		s.books[bookID] = b
	}
	return b
}

// UpsertEntry merges a created entry into the book's list. Idempotent by
// server id: re-applying the same entry replaces it in place and reports
// false, so the same remote id never shows twice.
func (s *Store) UpsertEntry(e ledger.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(e.BookID)
	if _, ok := b.byID[e.ID]; ok {
		b.byID[e.ID] = e
		return false
	}
	b.byID[e.ID] = e
	b.order = append([]int64{e.ID}, b.order...)
	return true
}

// ApplyAsset replaces the stored snapshot of one asset.
func (s *Store) ApplyAsset(a ledger.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(a.BookID).assets[a.ID] = a
}

// AdjustAssetLocal applies a signed delta to a locally held asset snapshot.
// Used for two-sided transfers, where the backend mutates both balances
// atomically and returns no snapshots. Unknown assets are ignored.
func (s *Store) AdjustAssetLocal(bookID, assetID, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(bookID)
	a, ok := b.assets[assetID]
	if !ok {
		return
	}
	a.Balance += delta
	b.assets[assetID] = a
}

// Entries returns the book's entries, newest first.
func (s *Store) Entries(bookID int64) []ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[bookID]
	if !ok {
		return nil
	}
	out := make([]ledger.Entry, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id])
	}
	return out
}

// Recent returns the n most recent entries of the book.
func (s *Store) Recent(bookID int64, n int) []ledger.Entry {
	entries := s.Entries(bookID)
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Asset returns a copy of one asset snapshot.
func (s *Store) Asset(bookID, assetID int64) (ledger.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[bookID]
	if !ok {
		return ledger.Asset{}, false
	}
	a, ok := b.assets[assetID]
	return a, ok
}

// Assets returns copies of all asset snapshots of the book.
func (s *Store) Assets(bookID int64) []ledger.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[bookID]
	if !ok {
		return nil
	}
	out := make([]ledger.Asset, 0, len(b.assets))
	for _, a := range b.assets {
		out = append(out, a)
	}
	return out
}

// MonthlyTotals sums the book's income and expense for one calendar month,
// feeding the monthly aggregate screens without a refetch.
func (s *Store) MonthlyTotals(bookID int64, year int, month time.Month) (income, expense int64) {
	first := ledger.NewDate(year, month, 1)
	last := ledger.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))

	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[bookID]
	if !ok {
		return 0, 0
	}
	for _, e := range b.byID {
		if e.Date.After(last) || first.After(e.Date) {
			continue
		}
		switch e.AmountType {
		case ledger.Income:
			income += e.Amount
		case ledger.Expense:
			expense += e.Amount
		}
	}
	return income, expense
}

// Follow consumes sync events from the stream until the context ends,
// merging remote mutations through the same entry points as local ones.
func (s *Store) Follow(ctx context.Context, src *stream.Stream) {
	ch := src.Subscribe(ctx)
	go func() {
		for evt := range ch {
			s.apply(evt)
		}
	}()
}

func (s *Store) apply(evt stream.Event) {
	switch evt.Type {
	case stream.EventLedgerCreated:
		var e ledger.Entry
		if err := json.Unmarshal(evt.Payload, &e); err != nil {
			obs.LogEntry(map[string]any{
				"level": "warn",
				"msg":   "sync payload decode failed",
				"type":  evt.Type,
				"error": err.Error(),
			})
			return
		}
		if e.BookID == 0 {
			e.BookID = evt.BookID
		}
		s.UpsertEntry(e)
	case stream.EventAssetUpdated:
		var a ledger.Asset
		if err := json.Unmarshal(evt.Payload, &a); err != nil {
			return
		}
		if a.BookID == 0 {
			a.BookID = evt.BookID
		}
		s.ApplyAsset(a)
	}
}
