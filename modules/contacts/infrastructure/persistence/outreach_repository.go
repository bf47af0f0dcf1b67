package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/outreach"
	"github.com/iota-uz/shepherd/pkg/composables"
)

const (
	insertOutreachQuery = `INSERT INTO outreach (id, owner_id, contact_id, channel, summary, occurred_at, created_at)
		VALUES (:id, :owner_id, :contact_id, :channel, :summary, :occurred_at, :created_at)`
	selectOutreachQuery = `SELECT id, owner_id, contact_id, channel, summary, occurred_at, created_at
		FROM outreach WHERE owner_id = ? AND contact_id = ? ORDER BY occurred_at DESC, id`
)

type OutreachRepository struct{}

func NewOutreachRepository() *OutreachRepository {
	return &OutreachRepository{}
}

func (r *OutreachRepository) Create(ctx context.Context, o outreach.Outreach) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, tx, insertOutreachQuery, toDBOutreach(o)); err != nil {
		return errors.Wrap(err, "insert outreach")
	}
	return nil
}

func (r *OutreachRepository) ListByContact(ctx context.Context, ownerID, contactID uuid.UUID) ([]outreach.Outreach, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var rows []dbOutreach
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(selectOutreachQuery), ownerID.String(), contactID.String()); err != nil {
		return nil, errors.Wrap(err, "select outreach")
	}
	out := make([]outreach.Outreach, 0, len(rows))
	for _, row := range rows {
		o, err := toDomainOutreach(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
