package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vistaoptics/pos-api/internal/config"
	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/internal/domain/enum"
	"github.com/vistaoptics/pos-api/internal/domain/repository"
	"github.com/vistaoptics/pos-api/internal/infrastructure/backend"
	"github.com/vistaoptics/pos-api/pkg/apperror"
	"github.com/vistaoptics/pos-api/pkg/override"
)

// CheckoutService orchestrates the payment-collection workflow: it binds one
// checkout per operator, drives the async payment poller, and applies the
// settlement rules on submission.
type CheckoutService struct {
	sales    repository.SaleRepository
	payments repository.PaymentRepository
	tickets  repository.TicketRepository
	printer  *PrinterService
	override *override.Manager
	cfg      config.CheckoutConfig
	log      *zap.Logger

	mu     sync.Mutex
	active map[int64]*Checkout // keyed by operator user id
}

// SettlementResult reports the outcome of a submission.
type SettlementResult struct {
	SaleID         int64   `json:"sale_id"`
	Settled        bool    `json:"settled"`
	PaidInFull     bool    `json:"paid_in_full"`
	Remaining      float64 `json:"remaining"`
	TicketID       int64   `json:"ticket_id,omitempty"`
	ReceiptPrinted bool    `json:"receipt_printed"`
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	sales repository.SaleRepository,
	payments repository.PaymentRepository,
	tickets repository.TicketRepository,
	printerService *PrinterService,
	overrideManager *override.Manager,
	cfg config.CheckoutConfig,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		sales:    sales,
		payments: payments,
		tickets:  tickets,
		printer:  printerService,
		override: overrideManager,
		cfg:      cfg,
		log:      log,
		active:   make(map[int64]*Checkout),
	}
}

// Open binds the operator to a sale, replacing any previous checkout. The
// sale is fetched first: a failed fetch leaves the previous checkout intact.
func (s *CheckoutService) Open(ctx context.Context, userID, branchID, saleID int64) (*CheckoutSnapshot, error) {
	sale, err := s.sales.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.active[userID]
	delete(s.active, userID)
	s.mu.Unlock()
	if prev != nil {
		prev.teardown("checkout rebound to another sale")
	}

	co := &Checkout{
		userID:   userID,
		branchID: branchID,
		saleID:   saleID,
		cookie:   backend.SessionFromContext(ctx),
		sale:     sale,
		session:  AsyncSession{Status: enum.SessionStatusIdle},
	}

	// The payment list is loaded best-effort: a failure here is recoverable
	// by the next sync and must not block opening the checkout.
	if entries, err := s.payments.GetPayments(ctx, saleID); err != nil {
		s.log.Warn("initial payment load failed",
			zap.Int64("sale_id", saleID),
			zap.Error(err),
		)
	} else {
		co.ledger.SyncFromBackend(entries)
	}

	s.mu.Lock()
	s.active[userID] = co
	s.mu.Unlock()

	co.mu.Lock()
	defer co.mu.Unlock()
	return co.snapshotLocked(), nil
}

// Current returns the operator's active checkout snapshot.
func (s *CheckoutService) Current(userID int64) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.snapshotLocked(), nil
}

// Close tears down the operator's active checkout. Unsynced ledger rows are
// discarded; they were never backend-confirmed.
func (s *CheckoutService) Close(userID int64) error {
	s.mu.Lock()
	co := s.active[userID]
	delete(s.active, userID)
	s.mu.Unlock()
	if co == nil {
		return apperror.ErrNoActiveCheckout
	}
	co.teardown("checkout closed")
	return nil
}

// AddManualPayment appends a cashier-entered payment row.
func (s *CheckoutService) AddManualPayment(userID int64, method enum.PaymentMethod, amount float64, reference string) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.session.Status.IsActive() {
		return nil, apperror.ErrSessionBusy
	}

	remaining := co.ledger.Remaining(co.sale.NetPayable())
	if _, err := co.ledger.AddManual(method, amount, reference, remaining, s.cfg.AmountTolerance); err != nil {
		return nil, mapLedgerError(err)
	}
	return co.snapshotLocked(), nil
}

// RemovePayment removes the ledger row at index. Persisted rows are refused.
func (s *CheckoutService) RemovePayment(userID int64, index int) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.session.Status.IsActive() {
		return nil, apperror.ErrSessionBusy
	}
	if _, err := co.ledger.Remove(index); err != nil {
		return nil, mapLedgerError(err)
	}
	return co.snapshotLocked(), nil
}

// StartQR opens a dynamic QR payment session and starts the status poller.
func (s *CheckoutService) StartQR(ctx context.Context, userID int64, amount float64) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if err := s.validateAsyncStartLocked(co, amount); err != nil {
		return nil, err
	}

	qr, err := s.payments.StartDynamicQR(ctx, co.saleID, co.branchID, amount)
	if err != nil {
		co.session = AsyncSession{Status: enum.SessionStatusIdle, LastEvent: "QR payment could not be started"}
		return nil, err
	}

	co.session = AsyncSession{
		Status:     enum.SessionStatusShowingQR,
		TrackingID: qr.TrackingID,
		QRData:     qr.QRData,
	}
	s.startPollingLocked(co)

	s.log.Info("qr payment started",
		zap.Int64("sale_id", co.saleID),
		zap.String("tracking_id", qr.TrackingID),
		zap.Float64("amount", amount),
	)
	return co.snapshotLocked(), nil
}

// StartTerminal sends a charge to a card terminal and starts the poller.
func (s *CheckoutService) StartTerminal(ctx context.Context, userID int64, amount float64, deviceID string) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if deviceID == "" {
		return nil, apperror.ErrDeviceRequired
	}
	if err := s.validateAsyncStartLocked(co, amount); err != nil {
		return nil, err
	}

	trackingID, err := s.payments.StartPoint(ctx, co.saleID, deviceID, amount)
	if err != nil {
		co.session = AsyncSession{Status: enum.SessionStatusIdle, LastEvent: "Terminal payment could not be started"}
		return nil, err
	}

	co.session = AsyncSession{
		Status:        enum.SessionStatusWaitingTerminal,
		TrackingID:    trackingID,
		StatusMessage: "Waiting for the card terminal",
	}
	s.startPollingLocked(co)

	s.log.Info("terminal payment started",
		zap.Int64("sale_id", co.saleID),
		zap.String("tracking_id", trackingID),
		zap.String("device_id", deviceID),
		zap.Float64("amount", amount),
	)
	return co.snapshotLocked(), nil
}

// CancelAsync aborts the outstanding async payment session. The backend rail
// is not contacted: if the rail approves the payment later, the approval is
// simply never observed because polling has stopped.
func (s *CheckoutService) CancelAsync(userID int64) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.session.Status.IsActive() {
		co.clearPollLocked()
		co.session = AsyncSession{Status: enum.SessionStatusIdle, LastEvent: "Payment cancelled by the cashier"}
	}
	return co.snapshotLocked(), nil
}

// ApplyInsurance applies insurance coverage to the sale and refreshes the
// ledger from the backend.
func (s *CheckoutService) ApplyInsurance(ctx context.Context, userID int64, amount float64, reference string) (*CheckoutSnapshot, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.session.Status.IsActive() {
		return nil, apperror.ErrSessionBusy
	}
	if amount <= 0 {
		return nil, apperror.NewBadRequestError("Coverage amount must be positive")
	}

	if err := s.sales.CoverInsurance(ctx, co.saleID, amount, reference); err != nil {
		return nil, err
	}
	s.refreshLedgerLocked(ctx, co)
	return co.snapshotLocked(), nil
}

// Submit applies the settlement rules and persists any unsaved payments in
// one batch. overrideToken, when present, bypasses only the minimum-deposit
// rule; the direct-sale full-payment rule is never bypassed.
func (s *CheckoutService) Submit(ctx context.Context, userID int64, overrideToken string) (*SettlementResult, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.session.Status.IsActive() {
		return nil, apperror.ErrSessionBusy
	}

	net := co.sale.NetPayable()
	remaining := co.ledger.Remaining(net)
	tolerance := s.cfg.AmountTolerance

	if co.sale.DirectSale {
		// No partial or deposit sales on direct retail purchases.
		if remaining > tolerance {
			return nil, apperror.ErrFullPaymentNeeded
		}
	} else if remaining > tolerance {
		base := net - co.ledger.ConfirmedInsurance()
		if base < 0 {
			base = 0
		}
		minimumDeposit := s.cfg.DepositRate * base
		if co.ledger.ConfirmedClient() < minimumDeposit-s.cfg.DepositTolerance {
			if overrideToken == "" {
				return nil, apperror.ErrDepositBelowMin
			}
			if err := s.override.ValidateToken(overrideToken, co.saleID); err != nil {
				return nil, apperror.ErrInvalidOverride
			}
			s.log.Info("minimum deposit bypassed by supervisor override",
				zap.Int64("sale_id", co.saleID),
			)
		}
	}

	unsaved := co.ledger.Unsaved()
	if len(unsaved) > 0 {
		// All-or-nothing from the client's perspective: on failure the
		// ledger keeps its unsaved rows and the cashier can retry.
		if err := s.payments.SubmitManual(ctx, co.saleID, unsaved); err != nil {
			return nil, err
		}
		s.refreshLedgerLocked(ctx, co)
	}

	result := &SettlementResult{
		SaleID:     co.saleID,
		Settled:    true,
		PaidInFull: remaining <= tolerance,
		Remaining:  co.ledger.Remaining(net),
	}

	// Fulfillment tickets are only created for optical sales with a known
	// client and operator.
	if !co.sale.DirectSale && co.sale.ClientID > 0 && co.userID > 0 {
		ticket, err := s.tickets.CreateTicket(ctx, &entity.Ticket{
			SaleID:    co.saleID,
			ClientID:  co.sale.ClientID,
			BranchID:  co.branchID,
			CreatedBy: co.userID,
		})
		if err != nil {
			s.log.Error("fulfillment ticket creation failed",
				zap.Int64("sale_id", co.saleID),
				zap.Error(err),
			)
		} else {
			result.TicketID = ticket.ID
		}
	}

	if s.printer != nil {
		if _, err := s.printer.PrintSettlement(co.sale, co.ledger.Entries()); err != nil {
			s.log.Warn("receipt printing failed",
				zap.Int64("sale_id", co.saleID),
				zap.Error(err),
			)
		} else {
			result.ReceiptPrinted = true
		}
	}

	// Settlement completes the checkout; unbind the operator.
	co.clearPollLocked()
	co.closed = true
	s.mu.Lock()
	if s.active[userID] == co {
		delete(s.active, userID)
	}
	s.mu.Unlock()

	s.log.Info("sale settled",
		zap.Int64("sale_id", co.saleID),
		zap.Bool("paid_in_full", result.PaidInFull),
		zap.Float64("remaining", result.Remaining),
	)
	return result, nil
}

// AuthorizeOverride verifies the supervisor PIN, records the audit
// observation on the sale, and issues a sale-scoped override token.
func (s *CheckoutService) AuthorizeOverride(ctx context.Context, userID int64, pin string) (string, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return "", err
	}

	if err := s.override.VerifyPIN(pin); err != nil {
		if errors.Is(err, override.ErrNotConfigured) {
			return "", apperror.NewAppError(http.StatusServiceUnavailable, "Supervisor override is not configured")
		}
		return "", apperror.ErrInvalidPIN
	}

	observation := fmt.Sprintf("Supervisor authorized settlement below minimum deposit (sale %d)", co.saleID)
	if err := s.sales.AddObservation(ctx, co.saleID, observation); err != nil {
		return "", err
	}

	token, err := s.override.IssueToken(co.saleID)
	if err != nil {
		return "", apperror.NewAppError(http.StatusInternalServerError, "Failed to issue override authorization")
	}

	s.log.Info("supervisor override authorized", zap.Int64("sale_id", co.saleID))
	return token, nil
}

// ListDevices lists the card terminals available to the session's branch.
func (s *CheckoutService) ListDevices(ctx context.Context) ([]entity.TerminalDevice, error) {
	return s.payments.ListDevices(ctx)
}

// PrintReceipt reprints the receipt for the operator's current checkout.
func (s *CheckoutService) PrintReceipt(userID int64) (*entity.Receipt, error) {
	co, err := s.checkout(userID)
	if err != nil {
		return nil, err
	}
	if s.printer == nil {
		return nil, apperror.NewAppError(http.StatusServiceUnavailable, "Printing is not configured")
	}

	co.mu.Lock()
	sale := co.sale
	entries := co.ledger.Entries()
	co.mu.Unlock()

	return s.printer.PrintSettlement(sale, entries)
}

// --- internals ---

func (s *CheckoutService) checkout(userID int64) (*Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	co, ok := s.active[userID]
	if !ok {
		return nil, apperror.ErrNoActiveCheckout
	}
	return co, nil
}

func (s *CheckoutService) validateAsyncStartLocked(co *Checkout, amount float64) error {
	if co.session.Status.IsActive() {
		return apperror.ErrSessionBusy
	}
	if amount <= 0 {
		return apperror.NewBadRequestError("Payment amount must be positive")
	}
	remaining := co.ledger.Remaining(co.sale.NetPayable())
	if amount > remaining+s.cfg.AmountTolerance {
		return apperror.NewBadRequestError("Payment amount exceeds remaining balance")
	}
	return nil
}

// startPollingLocked launches the status poller; co.mu must be held. Any
// previous poller is cancelled first so at most one timer is ever active.
func (s *CheckoutService) startPollingLocked(co *Checkout) {
	co.clearPollLocked()
	pollCtx, cancel := context.WithCancel(context.Background())
	co.cancelPoll = cancel
	go s.pollLoop(pollCtx, co, co.session.TrackingID)
}

func (s *CheckoutService) pollLoop(ctx context.Context, co *Checkout, trackingID string) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(s.cfg.SessionTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			s.expireSession(co, trackingID)
			return
		case <-ticker.C:
			if s.pollOnce(co, trackingID) {
				return
			}
		}
	}
}

// pollOnce fetches the backend payment list and inspects only the entry
// matching the tracked identifier. It returns true when polling should stop.
func (s *CheckoutService) pollOnce(co *Checkout, trackingID string) bool {
	ctx := backend.WithSession(context.Background(), co.cookie)
	entries, err := s.payments.GetPayments(ctx, co.saleID)
	if err != nil {
		// Read failures are non-fatal; the next tick retries.
		s.log.Warn("payment poll failed",
			zap.Int64("sale_id", co.saleID),
			zap.Error(err),
		)
		return false
	}

	co.mu.Lock()
	defer co.mu.Unlock()

	// The session may have been cancelled or rebound while fetching.
	if co.closed || !co.session.Status.IsActive() || co.session.TrackingID != trackingID {
		return true
	}

	co.ledger.SyncFromBackend(entries)

	entry, ok := co.ledger.FindByTracking(trackingID)
	if !ok {
		return false
	}
	switch {
	case entry.Status.IsApproved():
		co.clearPollLocked()
		co.session = AsyncSession{Status: enum.SessionStatusIdle, LastEvent: "Payment approved"}
		s.log.Info("async payment approved",
			zap.Int64("sale_id", co.saleID),
			zap.String("tracking_id", trackingID),
		)
		return true
	case entry.Status.IsRejected():
		co.clearPollLocked()
		co.session = AsyncSession{Status: enum.SessionStatusIdle, LastEvent: "Payment rejected; you may retry"}
		s.log.Info("async payment rejected",
			zap.Int64("sale_id", co.saleID),
			zap.String("tracking_id", trackingID),
			zap.String("status", entry.Status.String()),
		)
		return true
	default:
		return false
	}
}

// expireSession enforces the wall-clock safety timeout. The payment is not
// necessarily failed; the cashier is told to verify the device or QR.
func (s *CheckoutService) expireSession(co *Checkout, trackingID string) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.closed || !co.session.Status.IsActive() || co.session.TrackingID != trackingID {
		return
	}
	co.clearPollLocked()
	co.session = AsyncSession{
		Status:    enum.SessionStatusIdle,
		LastEvent: "Time exceeded; verify the device or QR before retrying",
	}
	s.log.Warn("async payment timed out",
		zap.Int64("sale_id", co.saleID),
		zap.String("tracking_id", trackingID),
	)
}

// refreshLedgerLocked reconciles the ledger against the backend; co.mu must
// be held. Failures are logged and left for the next sync.
func (s *CheckoutService) refreshLedgerLocked(ctx context.Context, co *Checkout) {
	entries, err := s.payments.GetPayments(ctx, co.saleID)
	if err != nil {
		s.log.Warn("ledger refresh failed",
			zap.Int64("sale_id", co.saleID),
			zap.Error(err),
		)
		return
	}
	co.ledger.SyncFromBackend(entries)
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, entity.ErrEntryReadOnly):
		return apperror.NewAppError(http.StatusUnprocessableEntity, "Persisted payments cannot be removed")
	case errors.Is(err, entity.ErrEntryNotFound):
		return apperror.NewNotFoundError("Payment entry")
	default:
		return apperror.NewBadRequestError(err.Error())
	}
}
