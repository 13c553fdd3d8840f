package repository

import (
	"context"

	"github.com/vistaoptics/pos-api/internal/domain/entity"
)

// TicketRepository creates fulfillment tickets on the retail backend.
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket *entity.Ticket) (*entity.Ticket, error)
}
