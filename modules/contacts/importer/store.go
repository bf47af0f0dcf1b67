package importer

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
)

// Store is the subset of the contact repository the engine relies on.
type Store interface {
	Insert(ctx context.Context, c contact.Contact) (uuid.UUID, error)
	InsertMany(ctx context.Context, contacts []contact.Contact) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	FindAll(ctx context.Context, ownerID uuid.UUID) ([]contact.Contact, error)
	FindByExactField(ctx context.Context, field, value string, ownerID uuid.UUID) ([]contact.Contact, error)
	FindByNormalizedPhone(ctx context.Context, digits string, ownerID uuid.UUID) ([]contact.Contact, error)
}

// Lookup finds stored contacts that match candidate by querying the store
// once per applicable rule, then runs CheckDuplicates over the union.
func Lookup(ctx context.Context, store Store, ownerID uuid.UUID, candidate contact.Fields) ([]Match, error) {
	candidate = contact.Normalize(candidate)
	var pool []contact.Contact
	seen := make(map[uuid.UUID]struct{})
	add := func(cs []contact.Contact) {
		for _, c := range cs {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			pool = append(pool, c)
		}
	}

	type query struct {
		field string
		value string
	}
	var queries []query
	if candidate.FirstName != "" && candidate.LastName != "" {
		queries = append(queries, query{contact.FieldLastName, candidate.LastName})
	}
	if candidate.Email != "" {
		queries = append(queries, query{contact.FieldEmail, candidate.Email})
	}
	if candidate.AddressLine1 != "" {
		queries = append(queries, query{contact.FieldAddressLine1, candidate.AddressLine1})
	}
	for _, q := range queries {
		found, err := store.FindByExactField(ctx, q.field, q.value, ownerID)
		if err != nil {
			return nil, &StorePersistenceError{Op: "find", Index: -1, Err: err}
		}
		add(found)
	}
	if digits, ok := NormalizePhone(candidate.Phone); ok {
		found, err := store.FindByNormalizedPhone(ctx, digits, ownerID)
		if err != nil {
			return nil, &StorePersistenceError{Op: "find", Index: -1, Err: err}
		}
		add(found)
	}
	return CheckDuplicates(candidate, pool), nil
}

// ScreenResult splits a projected batch into contacts safe to insert and
// candidates that need review.
type ScreenResult struct {
	Accepted   []contact.Contact
	Duplicates []DuplicateEntry
}

// Screen checks candidates in order against existing plus every candidate
// accepted earlier in the same batch. Accepted contacts get their IDs here,
// so duplicate matches against them stay valid once they are inserted.
func Screen(ownerID uuid.UUID, existing []contact.Contact, candidates []contact.Fields) ScreenResult {
	pool := make([]contact.Contact, len(existing), len(existing)+len(candidates))
	copy(pool, existing)

	var res ScreenResult
	for _, cand := range candidates {
		cand = contact.Normalize(cand)
		if matches := CheckDuplicates(cand, pool); len(matches) > 0 {
			res.Duplicates = append(res.Duplicates, DuplicateEntry{Candidate: cand, Matches: matches})
			continue
		}
		c := contact.New(ownerID, cand)
		res.Accepted = append(res.Accepted, c)
		pool = append(pool, c)
	}
	return res
}
