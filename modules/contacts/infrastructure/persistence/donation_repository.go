package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/donation"
	"github.com/iota-uz/shepherd/pkg/composables"
)

const (
	insertDonationQuery = `INSERT INTO donations (id, owner_id, contact_id, amount, currency, note, donated_at, created_at)
		VALUES (:id, :owner_id, :contact_id, :amount, :currency, :note, :donated_at, :created_at)`
	selectDonationsQuery = `SELECT id, owner_id, contact_id, amount, currency, note, donated_at, created_at
		FROM donations WHERE owner_id = ? AND contact_id = ? ORDER BY donated_at DESC, id`
)

type DonationRepository struct{}

func NewDonationRepository() *DonationRepository {
	return &DonationRepository{}
}

func (r *DonationRepository) Create(ctx context.Context, d donation.Donation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, tx, insertDonationQuery, toDBDonation(d)); err != nil {
		return errors.Wrap(err, "insert donation")
	}
	return nil
}

func (r *DonationRepository) ListByContact(ctx context.Context, ownerID, contactID uuid.UUID) ([]donation.Donation, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var rows []dbDonation
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(selectDonationsQuery), ownerID.String(), contactID.String()); err != nil {
		return nil, errors.Wrap(err, "select donations")
	}
	out := make([]donation.Donation, 0, len(rows))
	for _, row := range rows {
		d, err := toDomainDonation(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
