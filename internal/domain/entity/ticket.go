package entity

// Ticket is a fulfillment ticket created after a successful settlement so the
// lab/workshop can start working the sale.
type Ticket struct {
	ID        int64 `json:"id,omitempty"`
	SaleID    int64 `json:"sale_id"`
	ClientID  int64 `json:"client_id"`
	BranchID  int64 `json:"branch_id"`
	CreatedBy int64 `json:"created_by"`
}
