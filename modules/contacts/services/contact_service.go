package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/eventbus"
)

var ErrDuplicateContact = errors.New("contact matches an existing contact")

// DuplicateContactError carries the matches that blocked a create.
type DuplicateContactError struct {
	Matches []importer.Match
}

func (e *DuplicateContactError) Error() string {
	return fmt.Sprintf("%s (%d match(es))", ErrDuplicateContact, len(e.Matches))
}

func (e *DuplicateContactError) Unwrap() error {
	return ErrDuplicateContact
}

type ContactService struct {
	repo      contact.Repository
	publisher eventbus.EventBus
	tags      *TagCache
}

func NewContactService(repo contact.Repository, publisher eventbus.EventBus, tags *TagCache) *ContactService {
	return &ContactService{repo: repo, publisher: publisher, tags: tags}
}

// GetPaginated lists contacts. A non-empty q ranks the owner's contacts by
// fuzzy similarity of name, email and organization before paging.
func (s *ContactService) GetPaginated(ctx context.Context, params *contact.FindParams, q string) ([]contact.Contact, int64, error) {
	if params == nil {
		params = &contact.FindParams{}
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return s.repo.GetPaginated(ctx, params)
	}

	all, err := s.repo.FindAll(ctx, params.OwnerID)
	if err != nil {
		return nil, 0, err
	}
	if params.Tag != "" {
		filtered := all[:0]
		for _, c := range all {
			if hasTag(c, params.Tag) {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}

	targets := make([]string, len(all))
	for i, c := range all {
		targets[i] = searchText(c)
	}
	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	sort.Stable(ranks)

	matched := make([]contact.Contact, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, all[r.OriginalIndex])
	}
	return pageOf(matched, params.Offset, params.Limit), int64(len(matched)), nil
}

func searchText(c contact.Contact) string {
	return strings.Join([]string{c.DisplayName(), c.Email, c.Organization, c.City}, " ")
}

func hasTag(c contact.Contact, tag string) bool {
	for _, t := range c.TagList() {
		if strings.EqualFold(t, strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

func pageOf[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (s *ContactService) GetByID(ctx context.Context, ownerID, id uuid.UUID) (contact.Contact, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// CheckDuplicates looks up stored contacts matching fields.
func (s *ContactService) CheckDuplicates(ctx context.Context, ownerID uuid.UUID, fields contact.Fields) ([]importer.Match, error) {
	return importer.Lookup(ctx, s.repo, ownerID, fields)
}

// Create stores a new contact. Unless force is set, a contact matching an
// existing one is rejected with *DuplicateContactError.
func (s *ContactService) Create(ctx context.Context, ownerID uuid.UUID, dto *contact.CreateDTO, force bool) (contact.Contact, error) {
	if dto == nil {
		return contact.Contact{}, errors.New("missing dto")
	}
	fields := dto.ToFields()
	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (contact.Contact, error) {
		if !force {
			matches, err := importer.Lookup(txCtx, s.repo, ownerID, fields)
			if err != nil {
				return contact.Contact{}, err
			}
			if len(matches) > 0 {
				return contact.Contact{}, &DuplicateContactError{Matches: matches}
			}
		}
		id, err := s.repo.Insert(txCtx, contact.New(ownerID, fields))
		if err != nil {
			return contact.Contact{}, err
		}
		return s.repo.GetByID(txCtx, ownerID, id)
	})
	if err != nil {
		return contact.Contact{}, err
	}
	s.publisher.Publish(&contact.CreatedEvent{OwnerID: ownerID, Result: created, Source: contact.SourceManual})
	return created, nil
}

func (s *ContactService) Update(ctx context.Context, ownerID, id uuid.UUID, dto *contact.CreateDTO) (contact.Contact, error) {
	if dto == nil {
		return contact.Contact{}, errors.New("missing dto")
	}
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (contact.Contact, error) {
		existing, err := s.repo.GetByID(txCtx, ownerID, id)
		if err != nil {
			return contact.Contact{}, err
		}
		existing.Fields = dto.ToFields()
		if err := s.repo.Update(txCtx, existing); err != nil {
			return contact.Contact{}, err
		}
		return s.repo.GetByID(txCtx, ownerID, id)
	})
	if err != nil {
		return contact.Contact{}, err
	}
	s.publisher.Publish(&contact.UpdatedEvent{OwnerID: ownerID, Result: updated})
	return updated, nil
}

func (s *ContactService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.publisher.Publish(&contact.DeletedEvent{OwnerID: ownerID, ContactID: id, Source: contact.SourceManual})
	return nil
}

func (s *ContactService) Tags(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	return s.tags.Get(ctx, ownerID)
}
