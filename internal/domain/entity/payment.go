package entity

import (
	"errors"

	"github.com/google/uuid"
	"github.com/vistaoptics/pos-api/internal/domain/enum"
)

// Ledger validation errors.
var (
	ErrMethodRequired         = errors.New("payment method is required")
	ErrUnknownMethod          = errors.New("unknown payment method")
	ErrAmountNotPositive      = errors.New("payment amount must be positive")
	ErrAmountExceedsRemaining = errors.New("payment amount exceeds remaining balance")
	ErrEntryReadOnly          = errors.New("payment entry is already persisted and cannot be removed")
	ErrEntryNotFound          = errors.New("payment entry not found")
)

// PaymentEntry is one row of the payment ledger. Entries are either created
// locally by the cashier (readonly=false) or materialized from the backend's
// authoritative payment list (readonly=true).
type PaymentEntry struct {
	ID          string             `json:"id"`
	Method      enum.PaymentMethod `json:"method"`
	Amount      float64            `json:"amount"`
	Confirmed   bool               `json:"confirmed"`
	ReadOnly    bool               `json:"readonly"`
	Reference   string             `json:"reference,omitempty"`
	ExternalRef string             `json:"external_reference,omitempty"`
	Status      enum.PaymentStatus `json:"status,omitempty"`
}

// MatchesTracking reports whether the entry corresponds to the tracking
// identifier of an async payment (backend id or external reference).
func (e *PaymentEntry) MatchesTracking(trackingID string) bool {
	if trackingID == "" {
		return false
	}
	return e.ID == trackingID || e.ExternalRef == trackingID
}

// Ledger is the ordered in-memory payment list for one checkout. It is not
// safe for concurrent use; the owning checkout serializes access.
type Ledger struct {
	entries []PaymentEntry
}

// Entries returns a copy of the ledger rows in order.
func (l *Ledger) Entries() []PaymentEntry {
	out := make([]PaymentEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of ledger rows.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// AddManual appends a cashier-entered payment. The entry is provisionally
// confirmed but not readonly until the backend persists it. remaining is the
// current outstanding balance; tolerance absorbs rounding (0.01 by default).
func (l *Ledger) AddManual(method enum.PaymentMethod, amount float64, reference string, remaining, tolerance float64) (*PaymentEntry, error) {
	if method == "" {
		return nil, ErrMethodRequired
	}
	if !method.IsValid() || !method.IsManual() {
		return nil, ErrUnknownMethod
	}
	if amount <= 0 {
		return nil, ErrAmountNotPositive
	}
	if amount > remaining+tolerance {
		return nil, ErrAmountExceedsRemaining
	}

	entry := PaymentEntry{
		ID:        uuid.New().String(),
		Method:    method,
		Amount:    amount,
		Confirmed: true,
		ReadOnly:  false,
		Reference: reference,
	}
	l.entries = append(l.entries, entry)
	return &entry, nil
}

// Remove deletes the entry at index. Persisted (readonly) entries cannot be
// removed locally.
func (l *Ledger) Remove(index int) (*PaymentEntry, error) {
	if index < 0 || index >= len(l.entries) {
		return nil, ErrEntryNotFound
	}
	entry := l.entries[index]
	if entry.ReadOnly {
		return nil, ErrEntryReadOnly
	}
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	return &entry, nil
}

// SyncFromBackend replaces the persisted portion of the ledger with the
// backend's authoritative list. Backend entries always win and become
// readonly; confirmation is derived from the backend status. Local unsaved
// entries are re-appended after the backend list so a poll arriving while the
// cashier is typing never silently drops their row.
func (l *Ledger) SyncFromBackend(entries []PaymentEntry) {
	var unsaved []PaymentEntry
	for _, e := range l.entries {
		if !e.ReadOnly {
			unsaved = append(unsaved, e)
		}
	}

	next := make([]PaymentEntry, 0, len(entries)+len(unsaved))
	for _, e := range entries {
		e.ReadOnly = true
		e.Confirmed = e.Status.IsApproved()
		next = append(next, e)
	}
	l.entries = append(next, unsaved...)
}

// TotalPaid is the sum of confirmed amounts.
func (l *Ledger) TotalPaid() float64 {
	var sum float64
	for _, e := range l.entries {
		if e.Confirmed {
			sum += e.Amount
		}
	}
	return sum
}

// ConfirmedInsurance is the confirmed amount covered by insurance.
func (l *Ledger) ConfirmedInsurance() float64 {
	var sum float64
	for _, e := range l.entries {
		if e.Confirmed && e.Method.IsInsurance() {
			sum += e.Amount
		}
	}
	return sum
}

// ConfirmedClient is the confirmed amount actually paid by the client,
// excluding insurance coverage.
func (l *Ledger) ConfirmedClient() float64 {
	var sum float64
	for _, e := range l.entries {
		if e.Confirmed && !e.Method.IsInsurance() {
			sum += e.Amount
		}
	}
	return sum
}

// Unsaved returns the entries not yet persisted by the backend, in order.
func (l *Ledger) Unsaved() []PaymentEntry {
	var out []PaymentEntry
	for _, e := range l.entries {
		if !e.ReadOnly {
			out = append(out, e)
		}
	}
	return out
}

// FindByTracking locates the entry matching an async tracking identifier.
func (l *Ledger) FindByTracking(trackingID string) (*PaymentEntry, bool) {
	for i := range l.entries {
		if l.entries[i].MatchesTracking(trackingID) {
			return &l.entries[i], true
		}
	}
	return nil, false
}

// Remaining returns the outstanding balance against a net payable amount.
func (l *Ledger) Remaining(netPayable float64) float64 {
	remaining := netPayable - l.TotalPaid()
	if remaining < 0 {
		return 0
	}
	return remaining
}
