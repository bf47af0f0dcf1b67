package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/donation"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/outreach"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/eventbus"
)

// HistoryService records donations and outreach against a contact. Both feed
// the contact's derived aggregates and warmth score.
type HistoryService struct {
	contacts  contact.Repository
	donations donation.Repository
	outreach  outreach.Repository
	publisher eventbus.EventBus
	now       func() time.Time
}

func NewHistoryService(contacts contact.Repository, donations donation.Repository, outreachRepo outreach.Repository, publisher eventbus.EventBus) *HistoryService {
	return &HistoryService{
		contacts:  contacts,
		donations: donations,
		outreach:  outreachRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *HistoryService) RecordDonation(ctx context.Context, ownerID, contactID uuid.UUID, dto *donation.CreateDTO) (donation.Donation, error) {
	d, err := dto.ToEntity(ownerID, contactID, s.now())
	if err != nil {
		return donation.Donation{}, err
	}
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (contact.Contact, error) {
		if _, err := s.contacts.GetByID(txCtx, ownerID, contactID); err != nil {
			return contact.Contact{}, err
		}
		if err := s.donations.Create(txCtx, d); err != nil {
			return contact.Contact{}, err
		}
		return s.contacts.GetByID(txCtx, ownerID, contactID)
	})
	if err != nil {
		return donation.Donation{}, err
	}
	s.publisher.Publish(&contact.UpdatedEvent{OwnerID: ownerID, Result: updated})
	return d, nil
}

func (s *HistoryService) Donations(ctx context.Context, ownerID, contactID uuid.UUID) ([]donation.Donation, error) {
	if _, err := s.contacts.GetByID(ctx, ownerID, contactID); err != nil {
		return nil, err
	}
	return s.donations.ListByContact(ctx, ownerID, contactID)
}

func (s *HistoryService) RecordOutreach(ctx context.Context, ownerID, contactID uuid.UUID, dto *outreach.CreateDTO) (outreach.Outreach, error) {
	o := dto.ToEntity(ownerID, contactID, s.now())
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (contact.Contact, error) {
		if _, err := s.contacts.GetByID(txCtx, ownerID, contactID); err != nil {
			return contact.Contact{}, err
		}
		if err := s.outreach.Create(txCtx, o); err != nil {
			return contact.Contact{}, err
		}
		return s.contacts.GetByID(txCtx, ownerID, contactID)
	})
	if err != nil {
		return outreach.Outreach{}, err
	}
	s.publisher.Publish(&contact.UpdatedEvent{OwnerID: ownerID, Result: updated})
	return o, nil
}

func (s *HistoryService) Outreach(ctx context.Context, ownerID, contactID uuid.UUID) ([]outreach.Outreach, error) {
	if _, err := s.contacts.GetByID(ctx, ownerID, contactID); err != nil {
		return nil, err
	}
	return s.outreach.ListByContact(ctx, ownerID, contactID)
}
