package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vistaoptics/pos-api/internal/config"
	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/internal/domain/enum"
	"github.com/vistaoptics/pos-api/internal/domain/repository"
	"github.com/vistaoptics/pos-api/pkg/apperror"
	"github.com/vistaoptics/pos-api/pkg/override"
)

// --- fakes ---

type fakeSaleRepo struct {
	mu           sync.Mutex
	sales        map[int64]*entity.Sale
	observations []string
	coverErr     error
}

func (f *fakeSaleRepo) GetSale(_ context.Context, saleID int64) (*entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFoundError("Sale")
	}
	copied := *sale
	return &copied, nil
}

func (f *fakeSaleRepo) AddObservation(_ context.Context, _ int64, observation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, observation)
	return nil
}

func (f *fakeSaleRepo) CoverInsurance(_ context.Context, _ int64, _ float64, _ string) error {
	return f.coverErr
}

type fakePaymentRepo struct {
	mu        sync.Mutex
	payments  map[int64][]entity.PaymentEntry
	qr        *repository.QRSession
	qrErr     error
	pointID   string
	pointErr  error
	submitted [][]entity.PaymentEntry
	submitErr error
	devices   []entity.TerminalDevice
}

func (f *fakePaymentRepo) GetPayments(_ context.Context, saleID int64) ([]entity.PaymentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.PaymentEntry, len(f.payments[saleID]))
	copy(out, f.payments[saleID])
	return out, nil
}

func (f *fakePaymentRepo) setPayments(saleID int64, entries []entity.PaymentEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payments == nil {
		f.payments = make(map[int64][]entity.PaymentEntry)
	}
	f.payments[saleID] = entries
}

func (f *fakePaymentRepo) SubmitManual(_ context.Context, saleID int64, payments []entity.PaymentEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, payments)
	// The backend now owns these rows.
	for _, p := range payments {
		p.Status = enum.PaymentStatusApproved
		if f.payments == nil {
			f.payments = make(map[int64][]entity.PaymentEntry)
		}
		f.payments[saleID] = append(f.payments[saleID], p)
	}
	return nil
}

func (f *fakePaymentRepo) StartDynamicQR(_ context.Context, _, _ int64, _ float64) (*repository.QRSession, error) {
	if f.qrErr != nil {
		return nil, f.qrErr
	}
	if f.qr != nil {
		return f.qr, nil
	}
	return &repository.QRSession{TrackingID: "qr-1", QRData: "qr-payload"}, nil
}

func (f *fakePaymentRepo) StartPoint(_ context.Context, _ int64, _ string, _ float64) (string, error) {
	if f.pointErr != nil {
		return "", f.pointErr
	}
	if f.pointID != "" {
		return f.pointID, nil
	}
	return "point-1", nil
}

func (f *fakePaymentRepo) ListDevices(_ context.Context) ([]entity.TerminalDevice, error) {
	return f.devices, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	created []*entity.Ticket
	err     error
}

func (f *fakeTicketRepo) CreateTicket(_ context.Context, ticket *entity.Ticket) (*entity.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ticket.ID = int64(len(f.created) + 1)
	f.created = append(f.created, ticket)
	return ticket, nil
}

// --- helpers ---

const testPIN = "4321"

func testOverrideManager(t *testing.T) *override.Manager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	require.NoError(t, err)
	return override.NewManager(string(hash), "test-secret", time.Minute)
}

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		PollInterval:     5 * time.Millisecond,
		SessionTimeout:   150 * time.Millisecond,
		DepositRate:      0.30,
		DepositTolerance: 100.0,
		AmountTolerance:  0.01,
	}
}

func newTestService(t *testing.T, sales *fakeSaleRepo, payments *fakePaymentRepo, tickets *fakeTicketRepo) *CheckoutService {
	t.Helper()
	return NewCheckoutService(sales, payments, tickets, nil, testOverrideManager(t), testConfig(), zap.NewNop())
}

func opticalSale(id int64, total float64) *entity.Sale {
	return &entity.Sale{ID: id, ClientID: 7, Total: total}
}

func directSale(id int64, total float64) *entity.Sale {
	return &entity.Sale{ID: id, Total: total, DirectSale: true}
}

// --- tests ---

func TestCheckoutService_OpenAndClose(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})

	_, err := svc.Current(10)
	assert.ErrorIs(t, err, apperror.ErrNoActiveCheckout)

	snap, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Sale.ID)
	assert.Equal(t, 1000.0, snap.NetPayable)
	assert.Equal(t, 1000.0, snap.Remaining)
	assert.Equal(t, enum.SessionStatusIdle, snap.Session.Status)

	snap, err = svc.Current(10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Sale.ID)

	require.NoError(t, svc.Close(10))
	_, err = svc.Current(10)
	assert.ErrorIs(t, err, apperror.ErrNoActiveCheckout)
	assert.ErrorIs(t, svc.Close(10), apperror.ErrNoActiveCheckout)
}

func TestCheckoutService_Open_MissingSale(t *testing.T) {
	svc := newTestService(t, &fakeSaleRepo{sales: map[int64]*entity.Sale{}}, &fakePaymentRepo{}, &fakeTicketRepo{})

	_, err := svc.Open(context.Background(), 10, 2, 99)
	require.Error(t, err)

	_, err = svc.Current(10)
	assert.ErrorIs(t, err, apperror.ErrNoActiveCheckout)
}

func TestCheckoutService_Open_LoadsExistingPayments(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	payments.setPayments(1, []entity.PaymentEntry{
		{ID: "p1", Method: enum.PaymentMethodInsurance, Amount: 400, Status: enum.PaymentStatusApproved},
	})
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})

	snap, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)
	require.Len(t, snap.Payments, 1)
	assert.True(t, snap.Payments[0].ReadOnly)
	assert.Equal(t, 600.0, snap.Remaining)
}

func TestCheckoutService_AddAndRemovePayment(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	svc := newTestService(t, sales, &fakePaymentRepo{}, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	snap, err := svc.AddManualPayment(10, enum.PaymentMethodCash, 300, "")
	require.NoError(t, err)
	assert.Equal(t, 700.0, snap.Remaining)

	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 800, "")
	require.Error(t, err)

	snap, err = svc.RemovePayment(10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, snap.Remaining)

	_, err = svc.RemovePayment(10, 0)
	require.Error(t, err)
}

func TestCheckoutService_Submit_DirectSaleRequiresFullPayment(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: directSale(1, 600)}}
	payments := &fakePaymentRepo{}
	tickets := &fakeTicketRepo{}
	svc := newTestService(t, sales, payments, tickets)
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	// Partial payment is refused outright.
	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 200, "")
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), 10, "")
	assert.ErrorIs(t, err, apperror.ErrFullPaymentNeeded)

	// Completing the payment settles the sale.
	_, err = svc.AddManualPayment(10, enum.PaymentMethodTransfer, 400, "op-123")
	require.NoError(t, err)
	result, err := svc.Submit(context.Background(), 10, "")
	require.NoError(t, err)
	assert.True(t, result.Settled)
	assert.True(t, result.PaidInFull)
	require.Len(t, payments.submitted, 1)
	assert.Len(t, payments.submitted[0], 2)

	// Direct sales never create fulfillment tickets.
	assert.Empty(t, tickets.created)

	// Settlement unbinds the operator.
	_, err = svc.Current(10)
	assert.ErrorIs(t, err, apperror.ErrNoActiveCheckout)
}

func TestCheckoutService_Submit_OpticalDepositRules(t *testing.T) {
	t.Run("deposit below minimum is refused", func(t *testing.T) {
		sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
		svc := newTestService(t, sales, &fakePaymentRepo{}, &fakeTicketRepo{})
		_, err := svc.Open(context.Background(), 10, 2, 1)
		require.NoError(t, err)

		// Minimum deposit is 0.30*1000=300; the tolerance band lowers the
		// effective floor to 200. 100 stays below it.
		_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 100, "")
		require.NoError(t, err)
		_, err = svc.Submit(context.Background(), 10, "")
		assert.ErrorIs(t, err, apperror.ErrDepositBelowMin)
	})

	t.Run("deposit within tolerance band settles", func(t *testing.T) {
		sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
		tickets := &fakeTicketRepo{}
		svc := newTestService(t, sales, &fakePaymentRepo{}, tickets)
		_, err := svc.Open(context.Background(), 10, 2, 1)
		require.NoError(t, err)

		_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 250, "")
		require.NoError(t, err)
		result, err := svc.Submit(context.Background(), 10, "")
		require.NoError(t, err)
		assert.True(t, result.Settled)
		assert.False(t, result.PaidInFull)

		// Optical settlements create a fulfillment ticket.
		require.Len(t, tickets.created, 1)
		assert.Equal(t, int64(1), tickets.created[0].SaleID)
		assert.Equal(t, int64(7), tickets.created[0].ClientID)
		assert.Equal(t, tickets.created[0].ID, result.TicketID)
	})

	t.Run("insurance coverage shrinks the deposit base", func(t *testing.T) {
		sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
		payments := &fakePaymentRepo{}
		payments.setPayments(1, []entity.PaymentEntry{
			{ID: "i1", Method: enum.PaymentMethodInsurance, Amount: 400, Status: enum.PaymentStatusApproved},
		})
		svc := newTestService(t, sales, payments, &fakeTicketRepo{})
		_, err := svc.Open(context.Background(), 10, 2, 1)
		require.NoError(t, err)

		// Base is 1000-400=600, minimum 180, effective floor 80.
		_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 200, "")
		require.NoError(t, err)
		result, err := svc.Submit(context.Background(), 10, "")
		require.NoError(t, err)
		assert.True(t, result.Settled)
	})
}

func TestCheckoutService_Submit_SupervisorOverride(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 50, "")
	require.NoError(t, err)

	_, err = svc.AuthorizeOverride(context.Background(), 10, "0000")
	assert.ErrorIs(t, err, apperror.ErrInvalidPIN)

	token, err := svc.AuthorizeOverride(context.Background(), 10, testPIN)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Len(t, sales.observations, 1)

	_, err = svc.Submit(context.Background(), 10, "garbage-token")
	assert.ErrorIs(t, err, apperror.ErrInvalidOverride)

	result, err := svc.Submit(context.Background(), 10, token)
	require.NoError(t, err)
	assert.True(t, result.Settled)
	assert.False(t, result.PaidInFull)
}

func TestCheckoutService_QRFlow(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	snap, err := svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusShowingQR, snap.Session.Status)
	assert.Equal(t, "qr-1", snap.Session.TrackingID)
	assert.Equal(t, "qr-payload", snap.Session.QRData)

	// The ledger is blocked while the session is active.
	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 100, "")
	assert.ErrorIs(t, err, apperror.ErrSessionBusy)
	_, err = svc.Submit(context.Background(), 10, "")
	assert.ErrorIs(t, err, apperror.ErrSessionBusy)
	_, err = svc.StartQR(context.Background(), 10, 100)
	assert.ErrorIs(t, err, apperror.ErrSessionBusy)

	// The rail approves; the poller picks it up and closes the session.
	payments.setPayments(1, []entity.PaymentEntry{
		{ID: "qr-1", Method: enum.PaymentMethodQR, Amount: 300, Status: enum.PaymentStatusApproved},
	})

	require.Eventually(t, func() bool {
		snap, err := svc.Current(10)
		return err == nil && snap.Session.Status == enum.SessionStatusIdle
	}, time.Second, 5*time.Millisecond)

	snap, err = svc.Current(10)
	require.NoError(t, err)
	assert.Equal(t, "Payment approved", snap.Session.LastEvent)
	assert.Equal(t, 700.0, snap.Remaining)
}

func TestCheckoutService_QRFlow_Rejected(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)

	payments.setPayments(1, []entity.PaymentEntry{
		{ID: "qr-1", Method: enum.PaymentMethodQR, Amount: 300, Status: enum.PaymentStatusRejected},
	})

	require.Eventually(t, func() bool {
		snap, err := svc.Current(10)
		return err == nil && snap.Session.Status == enum.SessionStatusIdle
	}, time.Second, 5*time.Millisecond)

	snap, err := svc.Current(10)
	require.NoError(t, err)
	// A rejected payment never counts toward the total.
	assert.Equal(t, 1000.0, snap.Remaining)

	// The flow can be retried immediately.
	_, err = svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)
}

func TestCheckoutService_QRFlow_Timeout(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)

	// No status change ever arrives; the safety timeout fires.
	require.Eventually(t, func() bool {
		snap, err := svc.Current(10)
		return err == nil && snap.Session.Status == enum.SessionStatusIdle
	}, time.Second, 10*time.Millisecond)

	snap, err := svc.Current(10)
	require.NoError(t, err)
	assert.Contains(t, snap.Session.LastEvent, "Time exceeded")
}

func TestCheckoutService_CancelAsync(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)

	snap, err := svc.CancelAsync(10)
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusIdle, snap.Session.Status)

	// The ledger unblocks immediately.
	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 100, "")
	require.NoError(t, err)

	// Cancelling an idle session is a no-op.
	snap, err = svc.CancelAsync(10)
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusIdle, snap.Session.Status)
}

func TestCheckoutService_Terminal(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{
		devices: []entity.TerminalDevice{{ID: "dev-1", Name: "Counter 1", OperatingMode: "PDV"}},
	}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	devices, err := svc.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)

	_, err = svc.StartTerminal(context.Background(), 10, 300, "")
	assert.ErrorIs(t, err, apperror.ErrDeviceRequired)

	snap, err := svc.StartTerminal(context.Background(), 10, 300, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusWaitingTerminal, snap.Session.Status)
	assert.Equal(t, "point-1", snap.Session.TrackingID)
}

func TestCheckoutService_AsyncAmountValidation(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	svc := newTestService(t, sales, &fakePaymentRepo{}, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.StartQR(context.Background(), 10, 0)
	require.Error(t, err)

	_, err = svc.StartQR(context.Background(), 10, 1500)
	require.Error(t, err)
}

func TestCheckoutService_RebindTearsDownPreviousCheckout(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{
		1: opticalSale(1, 1000),
		2: opticalSale(2, 500),
	}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})

	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)
	_, err = svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)

	// Rebinding to another sale replaces the checkout and stops the poller.
	snap, err := svc.Open(context.Background(), 10, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Sale.ID)
	assert.Equal(t, enum.SessionStatusIdle, snap.Session.Status)

	// An approval for the old tracking id must not leak into the new checkout.
	payments.setPayments(2, []entity.PaymentEntry{})
	payments.setPayments(1, []entity.PaymentEntry{
		{ID: "qr-1", Method: enum.PaymentMethodQR, Amount: 300, Status: enum.PaymentStatusApproved},
	})
	time.Sleep(50 * time.Millisecond)

	snap, err = svc.Current(10)
	require.NoError(t, err)
	assert.Equal(t, 500.0, snap.Remaining)
	assert.Empty(t, snap.Payments)
}

func TestCheckoutService_TwoOperatorsAreIndependent(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{
		1: opticalSale(1, 1000),
		2: opticalSale(2, 500),
	}}
	svc := newTestService(t, sales, &fakePaymentRepo{}, &fakeTicketRepo{})

	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), 11, 2, 2)
	require.NoError(t, err)

	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 300, "")
	require.NoError(t, err)

	snap, err := svc.Current(11)
	require.NoError(t, err)
	assert.Empty(t, snap.Payments)
	assert.Equal(t, 500.0, snap.Remaining)
}

func TestCheckoutService_Submit_PersistenceFailureKeepsLedger(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{submitErr: errors.New("backend down")}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 400, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 10, "")
	require.Error(t, err)

	// The unsaved row stays in the ledger so the cashier can retry.
	snap, err := svc.Current(10)
	require.NoError(t, err)
	require.Len(t, snap.Payments, 1)
	assert.False(t, snap.Payments[0].ReadOnly)
	assert.Equal(t, 600.0, snap.Remaining)

	// Retrying after the backend recovers settles normally.
	payments.mu.Lock()
	payments.submitErr = nil
	payments.mu.Unlock()
	result, err := svc.Submit(context.Background(), 10, "")
	require.NoError(t, err)
	assert.True(t, result.Settled)
}

func TestCheckoutService_StartQR_FailureResetsSession(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{qrErr: errors.New("rail unavailable")}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.StartQR(context.Background(), 10, 300)
	require.Error(t, err)

	// A failed start never leaves a half-open session behind.
	snap, err := svc.Current(10)
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusIdle, snap.Session.Status)
	assert.Empty(t, snap.Session.TrackingID)

	// The ledger stays unblocked.
	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 100, "")
	require.NoError(t, err)
}

func TestCheckoutService_StartTerminal_FailureResetsSession(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{pointErr: errors.New("device offline")}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.StartTerminal(context.Background(), 10, 300, "dev-1")
	require.Error(t, err)

	snap, err := svc.Current(10)
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusIdle, snap.Session.Status)
	assert.Empty(t, snap.Session.TrackingID)

	_, err = svc.StartQR(context.Background(), 10, 300)
	require.NoError(t, err)
}

func TestCheckoutService_Submit_TicketFailureIsNonFatal(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	tickets := &fakeTicketRepo{err: errors.New("ticket service down")}
	svc := newTestService(t, sales, payments, tickets)
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.AddManualPayment(10, enum.PaymentMethodCash, 1000, "")
	require.NoError(t, err)

	// The sale still settles; only the ticket id is missing.
	result, err := svc.Submit(context.Background(), 10, "")
	require.NoError(t, err)
	assert.True(t, result.Settled)
	assert.True(t, result.PaidInFull)
	assert.Zero(t, result.TicketID)
}

func TestCheckoutService_ApplyInsurance_BackendFailure(t *testing.T) {
	sales := &fakeSaleRepo{
		sales:    map[int64]*entity.Sale{1: opticalSale(1, 1000)},
		coverErr: errors.New("coverage rejected"),
	}
	svc := newTestService(t, sales, &fakePaymentRepo{}, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.ApplyInsurance(context.Background(), 10, 400, "OS-99")
	require.Error(t, err)

	snap, err := svc.Current(10)
	require.NoError(t, err)
	assert.Empty(t, snap.Payments)
	assert.Equal(t, 1000.0, snap.Remaining)
}

func TestCheckoutService_ApplyInsurance(t *testing.T) {
	sales := &fakeSaleRepo{sales: map[int64]*entity.Sale{1: opticalSale(1, 1000)}}
	payments := &fakePaymentRepo{}
	svc := newTestService(t, sales, payments, &fakeTicketRepo{})
	_, err := svc.Open(context.Background(), 10, 2, 1)
	require.NoError(t, err)

	_, err = svc.ApplyInsurance(context.Background(), 10, 0, "")
	require.Error(t, err)

	// The backend records the coverage; the refreshed list reflects it.
	payments.setPayments(1, []entity.PaymentEntry{
		{ID: "i1", Method: enum.PaymentMethodInsurance, Amount: 400, Status: enum.PaymentStatusApproved},
	})
	snap, err := svc.ApplyInsurance(context.Background(), 10, 400, "OS-99")
	require.NoError(t, err)
	assert.Equal(t, 600.0, snap.Remaining)
}
