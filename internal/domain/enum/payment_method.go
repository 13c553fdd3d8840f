package enum

import "encoding/json"

// PaymentMethod identifies how a payment entry was (or will be) collected.
// Values match the wire names used by the retail backend.
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "EFECTIVO"
	PaymentMethodTransfer  PaymentMethod = "TRANSFERENCIA"
	PaymentMethodDebit     PaymentMethod = "DEBITO"
	PaymentMethodCredit    PaymentMethod = "CREDITO"
	PaymentMethodInsurance PaymentMethod = "OBRA_SOCIAL"
	PaymentMethodQR        PaymentMethod = "QR_DINAMICO"
	PaymentMethodTerminal  PaymentMethod = "POINT"
)

// methodSpec describes how a method participates in the checkout flow.
type methodSpec struct {
	manual    bool // can be added as a manual ledger entry and batch-submitted
	async     bool // collected through an asynchronous payment rail
	insurance bool // counts as coverage, not as a client payment
}

var methodSpecs = map[PaymentMethod]methodSpec{
	PaymentMethodCash:      {manual: true},
	PaymentMethodTransfer:  {manual: true},
	PaymentMethodDebit:     {manual: true},
	PaymentMethodCredit:    {manual: true},
	PaymentMethodInsurance: {insurance: true},
	PaymentMethodQR:        {async: true},
	PaymentMethodTerminal:  {async: true},
}

// IsValid reports whether the method is one of the known payment methods.
func (m PaymentMethod) IsValid() bool {
	_, ok := methodSpecs[m]
	return ok
}

// IsManual reports whether the method is collected by the cashier and
// persisted through the manual batch endpoint.
func (m PaymentMethod) IsManual() bool {
	return methodSpecs[m].manual
}

// IsAsync reports whether the method resolves through an asynchronous
// payment rail (dynamic QR or card terminal).
func (m PaymentMethod) IsAsync() bool {
	return methodSpecs[m].async
}

// IsInsurance reports whether the method is insurance coverage.
func (m PaymentMethod) IsInsurance() bool {
	return methodSpecs[m].insurance
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*m = PaymentMethod(str)
	return nil
}
