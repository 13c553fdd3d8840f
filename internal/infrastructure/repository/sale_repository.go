package repository

import (
	"context"
	"fmt"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/internal/infrastructure/backend"
)

// saleDTO mirrors the backend's sale payload.
type saleDTO struct {
	ID         int64         `json:"id"`
	ClientID   int64         `json:"cliente_id"`
	Total      float64       `json:"total"`
	Discount   float64       `json:"descuento"`
	DirectSale bool          `json:"venta_directa"`
	Items      []saleItemDTO `json:"items"`
}

type saleItemDTO struct {
	ProductID   int64   `json:"producto_id"`
	Description string  `json:"descripcion"`
	Quantity    int     `json:"cantidad"`
	UnitPrice   float64 `json:"precio_unitario"`
}

// SaleRepository implements domain/repository.SaleRepository against the
// retail backend's HTTP API.
type SaleRepository struct {
	client *backend.Client
}

// NewSaleRepository creates a new backend-backed sale repository.
func NewSaleRepository(client *backend.Client) *SaleRepository {
	return &SaleRepository{client: client}
}

// GetSale fetches the sale header and items.
func (r *SaleRepository) GetSale(ctx context.Context, saleID int64) (*entity.Sale, error) {
	var dto saleDTO
	if err := r.client.Get(ctx, fmt.Sprintf("/api/sales/%d", saleID), &dto); err != nil {
		return nil, err
	}

	sale := &entity.Sale{
		ID:         dto.ID,
		ClientID:   dto.ClientID,
		Total:      dto.Total,
		Discount:   dto.Discount,
		DirectSale: dto.DirectSale,
	}
	for _, item := range dto.Items {
		sale.Items = append(sale.Items, entity.SaleItem{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return sale, nil
}

// AddObservation appends an audit note to the sale.
func (r *SaleRepository) AddObservation(ctx context.Context, saleID int64, observation string) error {
	body := map[string]string{"observacion": observation}
	return r.client.Put(ctx, fmt.Sprintf("/api/sales/%d/observation", saleID), body, nil)
}

// CoverInsurance applies an insurance coverage amount to the sale.
func (r *SaleRepository) CoverInsurance(ctx context.Context, saleID int64, amount float64, reference string) error {
	body := map[string]any{
		"venta_id":   saleID,
		"monto":      amount,
		"referencia": reference,
	}
	return r.client.Post(ctx, "/api/sales/cover-insurance", body, nil)
}
