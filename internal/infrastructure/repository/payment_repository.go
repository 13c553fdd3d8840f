package repository

import (
	"context"
	"fmt"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/internal/domain/enum"
	domainRepo "github.com/vistaoptics/pos-api/internal/domain/repository"
	"github.com/vistaoptics/pos-api/internal/infrastructure/backend"
)

// paymentDTO mirrors one payment row as the backend returns it.
type paymentDTO struct {
	PaymentID   int64   `json:"pago_id"`
	Method      string  `json:"metodo"`
	Amount      float64 `json:"monto"`
	Status      string  `json:"estado"`
	Reference   string  `json:"referencia"`
	ExternalRef string  `json:"external_reference"`
}

type paymentListDTO struct {
	Payments  []paymentDTO `json:"pagos"`
	TotalPaid float64      `json:"total_pagado"`
}

// PaymentRepository implements domain/repository.PaymentRepository against
// the retail backend's payment endpoints.
type PaymentRepository struct {
	client *backend.Client
}

// NewPaymentRepository creates a new backend-backed payment repository.
func NewPaymentRepository(client *backend.Client) *PaymentRepository {
	return &PaymentRepository{client: client}
}

// GetPayments fetches the sale's current payment list.
func (r *PaymentRepository) GetPayments(ctx context.Context, saleID int64) ([]entity.PaymentEntry, error) {
	var dto paymentListDTO
	if err := r.client.Get(ctx, fmt.Sprintf("/api/payments/%d", saleID), &dto); err != nil {
		return nil, err
	}

	entries := make([]entity.PaymentEntry, 0, len(dto.Payments))
	for _, p := range dto.Payments {
		entries = append(entries, entity.PaymentEntry{
			ID:          fmt.Sprintf("%d", p.PaymentID),
			Method:      enum.PaymentMethod(p.Method),
			Amount:      p.Amount,
			Reference:   p.Reference,
			ExternalRef: p.ExternalRef,
			Status:      enum.PaymentStatus(p.Status),
		})
	}
	return entries, nil
}

// SubmitManual persists a batch of manual payments in one call.
func (r *PaymentRepository) SubmitManual(ctx context.Context, saleID int64, payments []entity.PaymentEntry) error {
	pagos := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		pagos = append(pagos, map[string]any{
			"metodo":     p.Method.String(),
			"monto":      p.Amount,
			"referencia": p.Reference,
		})
	}
	body := map[string]any{
		"venta_id": saleID,
		"pagos":    pagos,
	}
	return r.client.Post(ctx, "/api/payments/manual", body, nil)
}

// StartDynamicQR opens a QR payment session for the sale.
func (r *PaymentRepository) StartDynamicQR(ctx context.Context, saleID, branchID int64, amount float64) (*domainRepo.QRSession, error) {
	body := map[string]any{
		"total":       amount,
		"sucursal_id": branchID,
		"venta_id":    saleID,
	}
	var result struct {
		QRData      string `json:"qr_data"`
		ExternalRef string `json:"external_reference"`
		PaymentID   int64  `json:"pago_id"`
	}
	if err := r.client.Post(ctx, "/api/payments/mercadopago/dynamic", body, &result); err != nil {
		return nil, err
	}

	// The external reference is preferred; some backend versions only return
	// the payment id.
	trackingID := result.ExternalRef
	if trackingID == "" {
		trackingID = fmt.Sprintf("%d", result.PaymentID)
	}
	return &domainRepo.QRSession{
		TrackingID: trackingID,
		QRData:     result.QRData,
	}, nil
}

// StartPoint sends a charge to a physical card terminal.
func (r *PaymentRepository) StartPoint(ctx context.Context, saleID int64, deviceID string, amount float64) (string, error) {
	body := map[string]any{
		"venta_id":  saleID,
		"monto":     amount,
		"device_id": deviceID,
	}
	var result struct {
		PaymentID int64 `json:"pago_id"`
	}
	if err := r.client.Post(ctx, "/api/payments/mercadopago/point", body, &result); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", result.PaymentID), nil
}

// ListDevices lists the card terminals available to the session's branch.
func (r *PaymentRepository) ListDevices(ctx context.Context) ([]entity.TerminalDevice, error) {
	var result struct {
		Devices []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			OperatingMode string `json:"operating_mode"`
		} `json:"devices"`
	}
	if err := r.client.Get(ctx, "/api/payments/mercadopago/devices", &result); err != nil {
		return nil, err
	}

	devices := make([]entity.TerminalDevice, 0, len(result.Devices))
	for _, d := range result.Devices {
		devices = append(devices, entity.TerminalDevice{
			ID:            d.ID,
			Name:          d.Name,
			OperatingMode: d.OperatingMode,
		})
	}
	return devices, nil
}
