package persistence

import (
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/donation"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/outreach"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
)

func toDBContact(c contact.Contact) dbContact {
	digits, _ := importer.NormalizePhone(c.Phone)
	return dbContact{
		ID:           c.ID.String(),
		OwnerID:      c.OwnerID.String(),
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		PhoneDigits:  digits,
		FirstNameKey: importer.FoldKey(c.FirstName),
		LastNameKey:  importer.FoldKey(c.LastName),
		EmailKey:     importer.FoldKey(c.Email),
		AddressKey:   importer.FoldKey(c.AddressLine1),
		AddressLine1: c.AddressLine1,
		AddressLine2: c.AddressLine2,
		City:         c.City,
		State:        c.State,
		Zip:          c.Zip,
		Country:      c.Country,
		Organization: c.Organization,
		Relationship: c.Relationship,
		Notes:        c.Notes,
		Tags:         c.Tags,
		Photo:        c.Photo,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

func toDomainContact(row dbContact) (contact.Contact, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return contact.Contact{}, errors.Wrapf(err, "contact id %q", row.ID)
	}
	ownerID, err := uuid.Parse(row.OwnerID)
	if err != nil {
		return contact.Contact{}, errors.Wrapf(err, "contact owner id %q", row.OwnerID)
	}
	return contact.Contact{
		Fields: contact.Fields{
			FirstName:    row.FirstName,
			LastName:     row.LastName,
			Email:        row.Email,
			Phone:        row.Phone,
			AddressLine1: row.AddressLine1,
			AddressLine2: row.AddressLine2,
			City:         row.City,
			State:        row.State,
			Zip:          row.Zip,
			Country:      row.Country,
			Organization: row.Organization,
			Relationship: row.Relationship,
			Notes:        row.Notes,
			Tags:         row.Tags,
		},
		ID:            id,
		OwnerID:       ownerID,
		Photo:         row.Photo,
		LastDonation:  decimal.Zero,
		TotalDonation: decimal.Zero,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func toDomainContacts(rows []dbContact) ([]contact.Contact, error) {
	out := make([]contact.Contact, 0, len(rows))
	for _, row := range rows {
		c, err := toDomainContact(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func toDBDonation(d donation.Donation) dbDonation {
	return dbDonation{
		ID:        d.ID.String(),
		OwnerID:   d.OwnerID.String(),
		ContactID: d.ContactID.String(),
		Amount:    d.Amount.String(),
		Currency:  d.Currency,
		Note:      d.Note,
		DonatedAt: d.DonatedAt.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func toDomainDonation(row dbDonation) (donation.Donation, error) {
	ids, err := parseIDs(row.ID, row.OwnerID, row.ContactID)
	if err != nil {
		return donation.Donation{}, err
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return donation.Donation{}, errors.Wrapf(err, "donation %s amount", row.ID)
	}
	return donation.Donation{
		ID:        ids[0],
		OwnerID:   ids[1],
		ContactID: ids[2],
		Amount:    amount,
		Currency:  row.Currency,
		Note:      row.Note,
		DonatedAt: row.DonatedAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func toDBOutreach(o outreach.Outreach) dbOutreach {
	return dbOutreach{
		ID:         o.ID.String(),
		OwnerID:    o.OwnerID.String(),
		ContactID:  o.ContactID.String(),
		Channel:    string(o.Channel),
		Summary:    o.Summary,
		OccurredAt: o.OccurredAt.UTC(),
		CreatedAt:  o.CreatedAt.UTC(),
	}
}

func toDomainOutreach(row dbOutreach) (outreach.Outreach, error) {
	ids, err := parseIDs(row.ID, row.OwnerID, row.ContactID)
	if err != nil {
		return outreach.Outreach{}, err
	}
	return outreach.Outreach{
		ID:         ids[0],
		OwnerID:    ids[1],
		ContactID:  ids[2],
		Channel:    outreach.Channel(row.Channel),
		Summary:    row.Summary,
		OccurredAt: row.OccurredAt,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func parseIDs(raw ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parse id %q", s)
		}
		out = append(out, id)
	}
	return out, nil
}
