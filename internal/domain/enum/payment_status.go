package enum

// PaymentStatus is the backend's status string for a payment entry.
type PaymentStatus string

const (
	PaymentStatusApproved  PaymentStatus = "APROBADO"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMADO"
	PaymentStatusPending   PaymentStatus = "PENDIENTE"
	PaymentStatusRejected  PaymentStatus = "RECHAZADO"
	PaymentStatusCancelled PaymentStatus = "CANCELADO"
	PaymentStatusExpired   PaymentStatus = "EXPIRADO"
)

// IsApproved reports whether the backend considers the payment collected.
func (s PaymentStatus) IsApproved() bool {
	return s == PaymentStatusApproved || s == PaymentStatusConfirmed
}

// IsRejected reports whether the payment rail rejected or cancelled the
// payment. Anything neither approved nor rejected is still pending.
func (s PaymentStatus) IsRejected() bool {
	return s == PaymentStatusRejected || s == PaymentStatusCancelled || s == PaymentStatusExpired
}

func (s PaymentStatus) String() string {
	return string(s)
}
