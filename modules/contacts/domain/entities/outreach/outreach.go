package outreach

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelPhone  Channel = "phone"
	ChannelLetter Channel = "letter"
	ChannelVisit  Channel = "visit"
	ChannelText   Channel = "text"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPhone, ChannelLetter, ChannelVisit, ChannelText:
		return true
	}
	return false
}

type Outreach struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ContactID  uuid.UUID `json:"contact_id"`
	Channel    Channel   `json:"channel"`
	Summary    string    `json:"summary,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateDTO struct {
	Channel    string    `json:"channel" validate:"required,oneof=email phone letter visit text"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (d *CreateDTO) ToEntity(ownerID, contactID uuid.UUID, now time.Time) Outreach {
	occurredAt := d.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return Outreach{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		ContactID:  contactID,
		Channel:    Channel(strings.ToLower(strings.TrimSpace(d.Channel))),
		Summary:    strings.TrimSpace(d.Summary),
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now.UTC(),
	}
}

type Repository interface {
	Create(ctx context.Context, o Outreach) error
	ListByContact(ctx context.Context, ownerID, contactID uuid.UUID) ([]Outreach, error)
}
