package importer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
)

// Action is the resolution chosen for a duplicate entry.
type Action string

const (
	ActionImport Action = "imported"
	ActionSkip   Action = "skipped"
)

func (a Action) Valid() bool {
	return a == ActionImport || a == ActionSkip
}

type State string

const (
	StatePending  State = "pending"
	StateImported State = "imported"
	StateSkipped  State = "skipped"
)

// DuplicateEntry is a candidate held back because it matched stored contacts.
type DuplicateEntry struct {
	Candidate contact.Fields `json:"candidate"`
	Matches   []Match        `json:"matches"`
}

func NewDuplicateEntry(candidate contact.Fields, matches []Match) (DuplicateEntry, error) {
	if len(matches) == 0 {
		return DuplicateEntry{}, ErrNoMatches
	}
	return DuplicateEntry{Candidate: candidate, Matches: matches}, nil
}

// Committer persists a candidate accepted during review.
type Committer interface {
	Commit(ctx context.Context, candidate contact.Fields) (uuid.UUID, error)
}

type CommitterFunc func(ctx context.Context, candidate contact.Fields) (uuid.UUID, error)

func (f CommitterFunc) Commit(ctx context.Context, candidate contact.Fields) (uuid.UUID, error) {
	return f(ctx, candidate)
}

type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type EntryView struct {
	Index     int            `json:"index"`
	Entry     DuplicateEntry `json:"entry"`
	State     State          `json:"state"`
	ContactID *uuid.UUID     `json:"contact_id,omitempty"`
}

type Page[T any] struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Items      []T `json:"items"`
}

// pageBounds clamps page (1-based) and size and returns the slice bounds.
func pageBounds(page, size, total int) (int, int, int, int) {
	if size <= 0 {
		size = 10
	}
	pages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	from := (page - 1) * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}
	return page, size, from, to
}

// BulkResult reports what a bulk resolution did with each requested index.
type BulkResult struct {
	Resolved        []int `json:"resolved"`
	AlreadyResolved []int `json:"already_resolved"`
	Failed          []int `json:"failed"`
}

// Session tracks the resolution of every duplicate entry of one import batch.
// Entries are addressed by their stable index.
type Session struct {
	mu        sync.Mutex
	entries   []DuplicateEntry
	states    []State
	committed []uuid.UUID
	committer Committer
}

func NewSession(entries []DuplicateEntry, committer Committer) *Session {
	states := make([]State, len(entries))
	for i := range states {
		states[i] = StatePending
	}
	return &Session{
		entries:   entries,
		states:    states,
		committed: make([]uuid.UUID, len(entries)),
		committer: committer,
	}
}

func (s *Session) Len() int {
	return len(s.entries)
}

func (s *Session) State(idx int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.states) {
		return "", entryNotFound(idx)
	}
	return s.states[idx], nil
}

// ResolveOne resolves a pending entry. On ActionImport the candidate is
// committed first and the entry stays pending if that fails.
func (s *Session) ResolveOne(ctx context.Context, idx int, action Action) error {
	if !action.Valid() {
		return ErrInvalidAction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(ctx, idx, action)
}

func (s *Session) resolveLocked(ctx context.Context, idx int, action Action) error {
	if idx < 0 || idx >= len(s.entries) {
		return entryNotFound(idx)
	}
	if st := s.states[idx]; st != StatePending {
		return &AlreadyResolvedError{Index: idx, Resolution: string(st)}
	}
	if action == ActionSkip {
		s.states[idx] = StateSkipped
		return nil
	}
	id, err := s.committer.Commit(ctx, s.entries[idx].Candidate)
	if err != nil {
		return &StorePersistenceError{Op: "insert", Index: idx, Err: err}
	}
	s.committed[idx] = id
	s.states[idx] = StateImported
	return nil
}

// ResolveSelected applies action to every pending index. Resolved and
// repeated indices are skipped without error; a failing entry does not stop
// the rest of the batch and all failures are joined into the returned error.
func (s *Session) ResolveSelected(ctx context.Context, indices []int, action Action) (BulkResult, error) {
	res := BulkResult{Resolved: []int{}, AlreadyResolved: []int{}, Failed: []int{}}
	if !action.Valid() {
		return res, ErrInvalidAction
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		if idx >= 0 && idx < len(s.states) && s.states[idx] != StatePending {
			res.AlreadyResolved = append(res.AlreadyResolved, idx)
			continue
		}
		if err := s.resolveLocked(ctx, idx, action); err != nil {
			res.Failed = append(res.Failed, idx)
			errs = append(errs, err)
			continue
		}
		res.Resolved = append(res.Resolved, idx)
	}
	return res, errors.Join(errs...)
}

// SkipAll marks every pending entry skipped and returns how many changed.
func (s *Session) SkipAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i, st := range s.states {
		if st == StatePending {
			s.states[i] = StateSkipped
			n++
		}
	}
	return n
}

// IsComplete reports whether no entry is pending.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.states {
		if st == StatePending {
			return false
		}
	}
	return true
}

func (s *Session) Pending() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []int{}
	for i, st := range s.states {
		if st == StatePending {
			out = append(out, i)
		}
	}
	return out
}

func (s *Session) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{Total: len(s.states)}
	for _, st := range s.states {
		switch st {
		case StatePending:
			c.Pending++
		case StateImported:
			c.Imported++
		case StateSkipped:
			c.Skipped++
		}
	}
	return c
}

// Page returns a window of entries. page is 1-based and clamped to range.
func (s *Session) Page(page, size int) Page[EntryView] {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.entries)
	page, size, from, to := pageBounds(page, size, total)
	items := make([]EntryView, 0, to-from)
	for i := from; i < to; i++ {
		items = append(items, s.viewLocked(i))
	}
	return Page[EntryView]{
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
		Items:      items,
	}
}

func (s *Session) viewLocked(i int) EntryView {
	v := EntryView{Index: i, Entry: s.entries[i], State: s.states[i]}
	if s.states[i] == StateImported {
		id := s.committed[i]
		v.ContactID = &id
	}
	return v
}
