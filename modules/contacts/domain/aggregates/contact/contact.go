package contact

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCountry = "US"

var (
	ErrNotFound = errors.New("contact not found")
)

// Fields are the user-editable attributes of a contact. An import candidate is
// a Fields value that has not been persisted yet.
type Fields struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Country      string `json:"country,omitempty"`
	Organization string `json:"organization,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Tags         string `json:"tags,omitempty"`
}

// DisplayName is "First Last" with blank parts dropped.
func (f Fields) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName))
}

// TagList splits the comma-joined tag string into trimmed, non-empty labels.
func (f Fields) TagList() []string {
	if strings.TrimSpace(f.Tags) == "" {
		return nil
	}
	parts := strings.Split(f.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Contact struct {
	Fields

	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Photo          string          `json:"photo,omitempty"`
	WarmthScore    int             `json:"warmth_score"`
	LastOutreachAt *time.Time      `json:"last_outreach_at,omitempty"`
	LastDonation   decimal.Decimal `json:"last_donation"`
	LastDonationAt *time.Time      `json:"last_donation_at,omitempty"`
	TotalDonation  decimal.Decimal `json:"total_donation"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New builds an unsaved contact owned by ownerID with a fresh identifier.
func New(ownerID uuid.UUID, fields Fields) Contact {
	fields = Normalize(fields)
	return Contact{
		Fields:  fields,
		ID:      uuid.New(),
		OwnerID: ownerID,
	}
}

// Normalize trims every field and applies the country default.
func Normalize(f Fields) Fields {
	out := Fields{
		FirstName:    strings.TrimSpace(f.FirstName),
		LastName:     strings.TrimSpace(f.LastName),
		Email:        strings.TrimSpace(f.Email),
		Phone:        strings.TrimSpace(f.Phone),
		AddressLine1: strings.TrimSpace(f.AddressLine1),
		AddressLine2: strings.TrimSpace(f.AddressLine2),
		City:         strings.TrimSpace(f.City),
		State:        strings.TrimSpace(f.State),
		Zip:          strings.TrimSpace(f.Zip),
		Country:      strings.TrimSpace(f.Country),
		Organization: strings.TrimSpace(f.Organization),
		Relationship: strings.TrimSpace(f.Relationship),
		Notes:        strings.TrimSpace(f.Notes),
		Tags:         strings.TrimSpace(f.Tags),
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

func (c Contact) IsZero() bool { return c.ID == uuid.Nil }
