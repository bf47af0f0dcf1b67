package persistence

import "time"

type dbContact struct {
	ID           string    `db:"id"`
	OwnerID      string    `db:"owner_id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	PhoneDigits  string    `db:"phone_digits"`
	FirstNameKey string    `db:"first_name_key"`
	LastNameKey  string    `db:"last_name_key"`
	EmailKey     string    `db:"email_key"`
	AddressKey   string    `db:"address_line1_key"`
	AddressLine1 string    `db:"address_line1"`
	AddressLine2 string    `db:"address_line2"`
	City         string    `db:"city"`
	State        string    `db:"state"`
	Zip          string    `db:"zip"`
	Country      string    `db:"country"`
	Organization string    `db:"organization"`
	Relationship string    `db:"relationship"`
	Notes        string    `db:"notes"`
	Tags         string    `db:"tags"`
	Photo        string    `db:"photo"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type dbDonation struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	ContactID string    `db:"contact_id"`
	Amount    string    `db:"amount"`
	Currency  string    `db:"currency"`
	Note      string    `db:"note"`
	DonatedAt time.Time `db:"donated_at"`
	CreatedAt time.Time `db:"created_at"`
}

type dbOutreach struct {
	ID         string    `db:"id"`
	OwnerID    string    `db:"owner_id"`
	ContactID  string    `db:"contact_id"`
	Channel    string    `db:"channel"`
	Summary    string    `db:"summary"`
	OccurredAt time.Time `db:"occurred_at"`
	CreatedAt  time.Time `db:"created_at"`
}
