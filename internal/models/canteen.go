package models

import (
	"time"

	"github.com/google/uuid"
)

// Canteen is canteen entity. AcceptingOrders gates order placement.
type Canteen struct {
	ID              uuid.UUID
	Name            string
	AcceptingOrders bool
	CreatedAt       time.Time
}

// TokenPayload is the verified content of an externally issued access token
type TokenPayload struct {
	UserID uuid.UUID
}
