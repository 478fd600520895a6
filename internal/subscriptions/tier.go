package subscriptions

import (
	"errors"
	"time"
)

var (
	ErrTierNotFound   = errors.New("subscription tier not found")
	ErrNoTierAssigned = errors.New("trainer has no subscription tier assigned")
)

// Tier is a named pricing plan constraining how many clients a
// trainer may manage. Payments are not handled here, assigning a
// tier is a plain DB write.
type Tier struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"priceCents"`
	MaxClients int       `json:"maxClients"`
	CreatedAt  time.Time `json:"createdAt"`
}
