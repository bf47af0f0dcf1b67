package persistence

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/pkg/composables"
)

const (
	contactColumns = `id, owner_id, first_name, last_name, email, phone, phone_digits,
		first_name_key, last_name_key, email_key, address_line1_key, address_line1,
		address_line2, city, state, zip, country, organization, relationship, notes, tags, photo,
		created_at, updated_at`

	selectContactsQuery = `SELECT ` + contactColumns + ` FROM contacts`

	insertContactQuery = `INSERT INTO contacts (` + contactColumns + `) VALUES (
		:id, :owner_id, :first_name, :last_name, :email, :phone, :phone_digits,
		:first_name_key, :last_name_key, :email_key, :address_line1_key, :address_line1,
		:address_line2, :city, :state, :zip, :country, :organization, :relationship, :notes, :tags, :photo,
		:created_at, :updated_at)`

	updateContactQuery = `UPDATE contacts SET
		first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
		phone_digits = :phone_digits, first_name_key = :first_name_key, last_name_key = :last_name_key,
		email_key = :email_key, address_line1_key = :address_line1_key,
		address_line1 = :address_line1, address_line2 = :address_line2,
		city = :city, state = :state, zip = :zip, country = :country, organization = :organization,
		relationship = :relationship, notes = :notes, tags = :tags, photo = :photo, updated_at = :updated_at
		WHERE id = :id AND owner_id = :owner_id`

	contactOrder = ` ORDER BY last_name, first_name, id`
)

// exactFieldColumns whitelists the columns FindByExactField may compare.
// Text fields use their folded key column.
var exactFieldColumns = map[string]string{
	contact.FieldFirstName:    "first_name_key",
	contact.FieldLastName:     "last_name_key",
	contact.FieldEmail:        "email_key",
	contact.FieldPhone:        "phone",
	contact.FieldAddressLine1: "address_line1_key",
}

var ErrUnknownField = errors.New("unknown contact field")

type ContactRepository struct {
	now func() time.Time
}

func NewContactRepository() *ContactRepository {
	return &ContactRepository{now: time.Now}
}

func (r *ContactRepository) GetPaginated(ctx context.Context, params *contact.FindParams) ([]contact.Contact, int64, error) {
	if params == nil {
		params = &contact.FindParams{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	owner := params.OwnerID.String()

	if tag := strings.TrimSpace(params.Tag); tag != "" {
		all, err := r.FindAll(ctx, params.OwnerID)
		if err != nil {
			return nil, 0, err
		}
		filtered := make([]contact.Contact, 0, len(all))
		for _, c := range all {
			if hasTag(c, tag) {
				filtered = append(filtered, c)
			}
		}
		total := int64(len(filtered))
		if offset >= len(filtered) {
			return []contact.Contact{}, total, nil
		}
		end := offset + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		return filtered[offset:end], total, nil
	}

	var total int64
	if err := tx.GetContext(ctx, &total, tx.Rebind(`SELECT COUNT(*) FROM contacts WHERE owner_id = ?`), owner); err != nil {
		return nil, 0, errors.Wrap(err, "count contacts")
	}

	var rows []dbContact
	query := tx.Rebind(selectContactsQuery + ` WHERE owner_id = ?` + contactOrder + ` LIMIT ? OFFSET ?`)
	if err := tx.SelectContext(ctx, &rows, query, owner, limit, offset); err != nil {
		return nil, 0, errors.Wrap(err, "select contacts")
	}
	out, err := r.hydrate(ctx, tx, params.OwnerID, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (contact.Contact, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return contact.Contact{}, err
	}
	var row dbContact
	query := tx.Rebind(selectContactsQuery + ` WHERE owner_id = ? AND id = ?`)
	if err := tx.GetContext(ctx, &row, query, ownerID.String(), id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contact.Contact{}, contact.ErrNotFound
		}
		return contact.Contact{}, errors.Wrap(err, "get contact")
	}
	out, err := r.hydrate(ctx, tx, ownerID, []dbContact{row})
	if err != nil {
		return contact.Contact{}, err
	}
	return out[0], nil
}

func (r *ContactRepository) FindAll(ctx context.Context, ownerID uuid.UUID) ([]contact.Contact, error) {
	return r.selectWhere(ctx, ownerID, "", "")
}

// FindByExactField compares field case-insensitively after trimming value,
// using the same folding as the duplicate matcher.
func (r *ContactRepository) FindByExactField(ctx context.Context, field, value string, ownerID uuid.UUID) ([]contact.Contact, error) {
	column, ok := exactFieldColumns[field]
	if !ok {
		return nil, errors.Wrap(ErrUnknownField, field)
	}
	if field == contact.FieldPhone {
		value = strings.TrimSpace(value)
	} else {
		value = importer.FoldKey(value)
	}
	if value == "" {
		return []contact.Contact{}, nil
	}
	return r.selectWhere(ctx, ownerID, column+` = ?`, value)
}

// FindByNormalizedPhone matches the digits-only phone column.
func (r *ContactRepository) FindByNormalizedPhone(ctx context.Context, digits string, ownerID uuid.UUID) ([]contact.Contact, error) {
	if digits == "" {
		return []contact.Contact{}, nil
	}
	return r.selectWhere(ctx, ownerID, `phone_digits = ?`, digits)
}

func (r *ContactRepository) selectWhere(ctx context.Context, ownerID uuid.UUID, cond string, arg string) ([]contact.Contact, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := selectContactsQuery + ` WHERE owner_id = ?`
	args := []interface{}{ownerID.String()}
	if cond != "" {
		query += ` AND ` + cond
		args = append(args, arg)
	}
	var rows []dbContact
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query+contactOrder), args...); err != nil {
		return nil, errors.Wrap(err, "select contacts")
	}
	return r.hydrate(ctx, tx, ownerID, rows)
}

func (r *ContactRepository) Insert(ctx context.Context, c contact.Contact) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if _, err := sqlx.NamedExecContext(ctx, tx, insertContactQuery, toDBContact(c)); err != nil {
		return uuid.Nil, errors.Wrap(err, "insert contact")
	}
	return c.ID, nil
}

// InsertMany inserts all contacts in one transaction; nothing is kept if any insert fails.
func (r *ContactRepository) InsertMany(ctx context.Context, contacts []contact.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		for _, c := range contacts {
			if _, err := r.Insert(txCtx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ContactRepository) Update(ctx context.Context, c contact.Contact) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	c.UpdatedAt = r.now().UTC()
	res, err := sqlx.NamedExecContext(ctx, tx, updateContactQuery, toDBContact(c))
	if err != nil {
		return errors.Wrap(err, "update contact")
	}
	return requireAffected(res)
}

func (r *ContactRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		for _, table := range []string{"donations", "outreach"} {
			q := tx.Rebind(`DELETE FROM ` + table + ` WHERE owner_id = ? AND contact_id = ?`)
			if _, err := tx.ExecContext(txCtx, q, ownerID.String(), id.String()); err != nil {
				return errors.Wrapf(err, "delete %s", table)
			}
		}
		res, err := tx.ExecContext(txCtx, tx.Rebind(`DELETE FROM contacts WHERE owner_id = ? AND id = ?`), ownerID.String(), id.String())
		if err != nil {
			return errors.Wrap(err, "delete contact")
		}
		return requireAffected(res)
	})
}

// Tags returns the distinct tag labels of an owner, compared case-insensitively
// and sorted. The first spelling seen wins.
func (r *ContactRepository) Tags(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var raw []string
	q := tx.Rebind(`SELECT tags FROM contacts WHERE owner_id = ? AND tags <> '' ORDER BY created_at, id`)
	if err := tx.SelectContext(ctx, &raw, q, ownerID.String()); err != nil {
		return nil, errors.Wrap(err, "select tags")
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, t := range raw {
		for _, tag := range (contact.Fields{Tags: t}).TagList() {
			key := strings.ToLower(tag)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}

type donationStat struct {
	ContactID string    `db:"contact_id"`
	Amount    string    `db:"amount"`
	DonatedAt time.Time `db:"donated_at"`
}

type outreachStat struct {
	ContactID  string    `db:"contact_id"`
	OccurredAt time.Time `db:"occurred_at"`
}

// hydrate maps rows to contacts and folds donation and outreach history into
// the derived aggregates and warmth score.
func (r *ContactRepository) hydrate(ctx context.Context, tx composables.Tx, ownerID uuid.UUID, rows []dbContact) ([]contact.Contact, error) {
	contacts, err := toDomainContacts(rows)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return contacts, nil
	}

	filter, args := ` WHERE owner_id = ?`, []interface{}{ownerID.String()}
	if len(contacts) == 1 {
		filter += ` AND contact_id = ?`
		args = append(args, contacts[0].ID.String())
	}

	var donations []donationStat
	if err := tx.SelectContext(ctx, &donations, tx.Rebind(`SELECT contact_id, amount, donated_at FROM donations`+filter), args...); err != nil {
		return nil, errors.Wrap(err, "select donation stats")
	}
	var outreach []outreachStat
	if err := tx.SelectContext(ctx, &outreach, tx.Rebind(`SELECT contact_id, occurred_at FROM outreach`+filter), args...); err != nil {
		return nil, errors.Wrap(err, "select outreach stats")
	}

	byID := make(map[string]*contact.Contact, len(contacts))
	for i := range contacts {
		byID[contacts[i].ID.String()] = &contacts[i]
	}
	for _, d := range donations {
		c, ok := byID[d.ContactID]
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(d.Amount)
		if err != nil {
			return nil, errors.Wrapf(err, "donation amount for contact %s", d.ContactID)
		}
		c.TotalDonation = c.TotalDonation.Add(amount)
		if c.LastDonationAt == nil || d.DonatedAt.After(*c.LastDonationAt) {
			at := d.DonatedAt
			c.LastDonationAt = &at
			c.LastDonation = amount
		}
	}
	for _, o := range outreach {
		c, ok := byID[o.ContactID]
		if !ok {
			continue
		}
		if c.LastOutreachAt == nil || o.OccurredAt.After(*c.LastOutreachAt) {
			at := o.OccurredAt
			c.LastOutreachAt = &at
		}
	}

	now := r.now()
	for i := range contacts {
		contacts[i].WarmthScore = contact.ComputeWarmth(now, contacts[i].LastOutreachAt, contacts[i].TotalDonation)
	}
	return contacts, nil
}

func hasTag(c contact.Contact, tag string) bool {
	for _, t := range c.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return contact.ErrNotFound
	}
	return nil
}
