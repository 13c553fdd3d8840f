package request

// OpenCheckoutRequest binds the operator to a sale.
type OpenCheckoutRequest struct {
	SaleID int64 `json:"sale_id" binding:"required,gt=0"`
}

// AddPaymentRequest appends a cashier-entered payment row. Method and amount
// are validated by the ledger so the cashier gets the specific message, not a
// generic binding error.
type AddPaymentRequest struct {
	Method    string  `json:"method"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
}

// StartQRRequest opens a dynamic QR payment session.
type StartQRRequest struct {
	Amount float64 `json:"amount"`
}

// StartTerminalRequest sends a charge to a card terminal. The device id is
// validated by the service so a missing selection gets its own prompt.
type StartTerminalRequest struct {
	Amount   float64 `json:"amount"`
	DeviceID string  `json:"device_id"`
}

// InsuranceRequest applies insurance coverage to the bound sale.
type InsuranceRequest struct {
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
}

// SubmitRequest settles the checkout. The override token is only needed when
// the collected deposit is below the minimum.
type SubmitRequest struct {
	OverrideToken string `json:"override_token"`
}

// OverrideRequest requests a supervisor authorization token.
type OverrideRequest struct {
	PIN string `json:"pin" binding:"required"`
}
