package repository

import (
	"context"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
)

// SaleRepository reads and annotates sales owned by the retail backend.
type SaleRepository interface {
	// GetSale fetches the sale header and items.
	GetSale(ctx context.Context, saleID int64) (*entity.Sale, error)
	// AddObservation appends an audit note to the sale (supervisor overrides).
	AddObservation(ctx context.Context, saleID int64, observation string) error
	// CoverInsurance applies an insurance coverage amount to the sale.
	CoverInsurance(ctx context.Context, saleID int64, amount float64, reference string) error
}
