package entity

// ReceiptHeader holds the store header printed at the top of a receipt.
type ReceiptHeader struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
}

// ReceiptItem represents a single sale line on a receipt.
type ReceiptItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// ReceiptPayment represents one collected payment on a receipt.
type ReceiptPayment struct {
	Method    string  `json:"method"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference,omitempty"`
}

// Receipt is a value object representing a printable settlement receipt.
// It is composed from sale and ledger data at print time, never stored.
type Receipt struct {
	Header     ReceiptHeader    `json:"header"`
	SaleID     int64            `json:"sale_id"`
	Date       string           `json:"date"`
	Cashier    string           `json:"cashier,omitempty"`
	Items      []ReceiptItem    `json:"items"`
	Total      float64          `json:"total"`
	Discount   float64          `json:"discount"`
	NetPayable float64          `json:"net_payable"`
	Payments   []ReceiptPayment `json:"payments"`
	Paid       float64          `json:"paid"`
	Remaining  float64          `json:"remaining"`
}
