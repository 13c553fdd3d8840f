package service

import (
	"context"
	"sync"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/internal/domain/enum"
)

// AsyncSession is the state of the asynchronous payment flow bound to a
// checkout. At most one async payment is outstanding per checkout.
type AsyncSession struct {
	Status        enum.SessionStatus `json:"status"`
	TrackingID    string             `json:"tracking_id,omitempty"`
	QRData        string             `json:"qr_data,omitempty"`
	StatusMessage string             `json:"status_message,omitempty"`
	LastEvent     string             `json:"last_event,omitempty"`
}

// Checkout holds the in-memory payment-collection state for one sale bound
// to one operator. All durable state lives on the retail backend; a checkout
// only ever holds unsynced ledger rows and the async session.
type Checkout struct {
	mu sync.Mutex

	userID   int64
	branchID int64
	saleID   int64
	cookie   string // ambient backend session captured at bind time

	sale    *entity.Sale
	ledger  entity.Ledger
	session AsyncSession

	cancelPoll context.CancelFunc
	closed     bool
}

// CheckoutSnapshot is the read model returned to the POS UI.
type CheckoutSnapshot struct {
	Sale       *entity.Sale          `json:"sale"`
	Payments   []entity.PaymentEntry `json:"payments"`
	NetPayable float64               `json:"net_payable"`
	TotalPaid  float64               `json:"total_paid"`
	Remaining  float64               `json:"remaining"`
	Session    AsyncSession          `json:"session"`
}

// snapshotLocked builds a snapshot; co.mu must be held.
func (co *Checkout) snapshotLocked() *CheckoutSnapshot {
	net := co.sale.NetPayable()
	return &CheckoutSnapshot{
		Sale:       co.sale,
		Payments:   co.ledger.Entries(),
		NetPayable: net,
		TotalPaid:  co.ledger.TotalPaid(),
		Remaining:  co.ledger.Remaining(net),
		Session:    co.session,
	}
}

// clearPollLocked cancels any running poller; co.mu must be held.
func (co *Checkout) clearPollLocked() {
	if co.cancelPoll != nil {
		co.cancelPoll()
		co.cancelPoll = nil
	}
}

// teardown stops polling and marks the checkout unusable. Called when the
// operator rebinds to another sale or closes the checkout, so a poller
// started for the old sale can never mutate state afterwards.
func (co *Checkout) teardown(event string) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.clearPollLocked()
	co.session = AsyncSession{Status: enum.SessionStatusIdle, LastEvent: event}
	co.closed = true
}
