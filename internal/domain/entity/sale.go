package entity

// Sale is a read-only projection of a sale owned by the retail backend.
// The checkout flow never mutates it directly; it is re-fetched after every
// payment mutation.
type Sale struct {
	ID         int64      `json:"id"`
	ClientID   int64      `json:"client_id"`
	Total      float64    `json:"total"`
	Discount   float64    `json:"discount"`
	DirectSale bool       `json:"direct_sale"`
	Items      []SaleItem `json:"items,omitempty"`
}

// SaleItem is a display-only line item of a sale.
type SaleItem struct {
	ProductID   int64   `json:"product_id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// NetPayable returns the amount actually owed for the sale.
func (s *Sale) NetPayable() float64 {
	net := s.Total - s.Discount
	if net < 0 {
		return 0
	}
	return net
}
