package repository

import (
	"context"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
)

// QRSession is the backend's answer to a dynamic QR payment request.
type QRSession struct {
	TrackingID string
	QRData     string
}

// PaymentRepository talks to the backend's payment endpoints. It is the only
// source of truth for persisted payments; the local ledger reconciles against
// it on every poll.
type PaymentRepository interface {
	// GetPayments fetches the sale's current payment list.
	GetPayments(ctx context.Context, saleID int64) ([]entity.PaymentEntry, error)
	// SubmitManual persists a batch of manual payments in one call.
	SubmitManual(ctx context.Context, saleID int64, payments []entity.PaymentEntry) error
	// StartDynamicQR opens a QR payment session and returns its tracking id.
	StartDynamicQR(ctx context.Context, saleID, branchID int64, amount float64) (*QRSession, error)
	// StartPoint sends a charge to a physical card terminal and returns the
	// payment id to track.
	StartPoint(ctx context.Context, saleID int64, deviceID string, amount float64) (string, error)
	// ListDevices lists the card terminals available to the session's branch.
	ListDevices(ctx context.Context) ([]entity.TerminalDevice, error)
}
