package models

// payment state as reported by the gateway
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
	PaymentStatusPending = "pending"
)
