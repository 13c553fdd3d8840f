package repository

import (
	"context"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/internal/infrastructure/backend"
)

// TicketRepository implements domain/repository.TicketRepository against the
// retail backend.
type TicketRepository struct {
	client *backend.Client
}

// NewTicketRepository creates a new backend-backed ticket repository.
func NewTicketRepository(client *backend.Client) *TicketRepository {
	return &TicketRepository{client: client}
}

// CreateTicket creates a fulfillment ticket for a settled sale.
func (r *TicketRepository) CreateTicket(ctx context.Context, ticket *entity.Ticket) (*entity.Ticket, error) {
	body := map[string]any{
		"venta_id":    ticket.SaleID,
		"cliente_id":  ticket.ClientID,
		"sucursal_id": ticket.BranchID,
		"usuario_id":  ticket.CreatedBy,
	}
	var result struct {
		ID int64 `json:"id"`
	}
	if err := r.client.Post(ctx, "/api/tickets", body, &result); err != nil {
		return nil, err
	}

	created := *ticket
	created.ID = result.ID
	return &created, nil
}
