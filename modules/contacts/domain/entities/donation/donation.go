package donation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("donation amount must be positive")
)

type Donation struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	ContactID uuid.UUID       `json:"contact_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Note      string          `json:"note,omitempty"`
	DonatedAt time.Time       `json:"donated_at"`
	CreatedAt time.Time       `json:"created_at"`
}

type CreateDTO struct {
	Amount    string    `json:"amount" validate:"required"`
	Currency  string    `json:"currency" validate:"omitempty,len=3"`
	Note      string    `json:"note"`
	DonatedAt time.Time `json:"donated_at"`
}

// ToEntity parses the amount and fills defaults. A zero DonatedAt means "now".
func (d *CreateDTO) ToEntity(ownerID, contactID uuid.UUID, now time.Time) (Donation, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(d.Amount))
	if err != nil {
		return Donation{}, ErrInvalidAmount
	}
	if !amount.IsPositive() {
		return Donation{}, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = "USD"
	}
	donatedAt := d.DonatedAt
	if donatedAt.IsZero() {
		donatedAt = now
	}
	return Donation{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		ContactID: contactID,
		Amount:    amount,
		Currency:  currency,
		Note:      strings.TrimSpace(d.Note),
		DonatedAt: donatedAt.UTC(),
		CreatedAt: now.UTC(),
	}, nil
}

type Repository interface {
	Create(ctx context.Context, d Donation) error
	ListByContact(ctx context.Context, ownerID, contactID uuid.UUID) ([]Donation, error)
}
