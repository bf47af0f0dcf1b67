package importer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

type PairAction string

const (
	PairKeepA PairAction = "keep_a"
	PairKeepB PairAction = "keep_b"
	PairSkip  PairAction = "skip"
)

func (a PairAction) Valid() bool {
	switch a {
	case PairKeepA, PairKeepB, PairSkip:
		return true
	}
	return false
}

type PairState string

const (
	PairPending  PairState = "pending"
	PairKeptA    PairState = "kept_a"
	PairKeptB    PairState = "kept_b"
	PairSkipped  PairState = "skipped"
	PairCascaded PairState = "cascaded"
)

// Deleter removes a stored contact.
type Deleter interface {
	Delete(ctx context.Context, id uuid.UUID) error
}

type DeleterFunc func(ctx context.Context, id uuid.UUID) error

func (f DeleterFunc) Delete(ctx context.Context, id uuid.UUID) error {
	return f(ctx, id)
}

type PairView struct {
	Index int       `json:"index"`
	Pair  Pair      `json:"pair"`
	State PairState `json:"state"`
}

type PairCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Kept     int `json:"kept"`
	Skipped  int `json:"skipped"`
	Cascaded int `json:"cascaded"`
}

// PairReview resolves pairs found by a full scan. Keeping one side deletes
// the other, and every other pending pair that references the deleted
// contact leaves the pending set as cascaded.
type PairReview struct {
	mu      sync.Mutex
	pairs   []Pair
	states  []PairState
	deleted map[uuid.UUID]struct{}
	deleter Deleter
}

func NewPairReview(pairs []Pair, deleter Deleter) *PairReview {
	states := make([]PairState, len(pairs))
	for i := range states {
		states[i] = PairPending
	}
	return &PairReview{
		pairs:   pairs,
		states:  states,
		deleted: make(map[uuid.UUID]struct{}),
		deleter: deleter,
	}
}

func (r *PairReview) Len() int {
	return len(r.pairs)
}

// Resolve applies action to a pending pair and returns the indexes of the
// pairs cascaded by the deletion.
func (r *PairReview) Resolve(ctx context.Context, idx int, action PairAction) ([]int, error) {
	if !action.Valid() {
		return nil, ErrInvalidAction
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(ctx, idx, action)
}

func (r *PairReview) resolveLocked(ctx context.Context, idx int, action PairAction) ([]int, error) {
	if idx < 0 || idx >= len(r.pairs) {
		return nil, entryNotFound(idx)
	}
	if st := r.states[idx]; st != PairPending {
		return nil, &AlreadyResolvedError{Index: idx, Resolution: string(st)}
	}

	var victim uuid.UUID
	var next PairState
	switch action {
	case PairSkip:
		r.states[idx] = PairSkipped
		return nil, nil
	case PairKeepA:
		victim, next = r.pairs[idx].ContactB.ID, PairKeptA
	default:
		victim, next = r.pairs[idx].ContactA.ID, PairKeptB
	}

	if err := r.deleter.Delete(ctx, victim); err != nil {
		return nil, &StorePersistenceError{Op: "delete", Index: idx, Err: err}
	}
	r.states[idx] = next
	r.deleted[victim] = struct{}{}

	cascaded := []int{}
	for j, p := range r.pairs {
		if j == idx || r.states[j] != PairPending {
			continue
		}
		if p.ContactA.ID == victim || p.ContactB.ID == victim {
			r.states[j] = PairCascaded
			cascaded = append(cascaded, j)
		}
	}
	return cascaded, nil
}

// ResolveSelected applies action to each pending pair. Pairs that are
// already resolved, including ones cascaded earlier in the same call, are
// skipped without error.
func (r *PairReview) ResolveSelected(ctx context.Context, indices []int, action PairAction) (BulkResult, error) {
	res := BulkResult{Resolved: []int{}, AlreadyResolved: []int{}, Failed: []int{}}
	if !action.Valid() {
		return res, ErrInvalidAction
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		if idx >= 0 && idx < len(r.states) && r.states[idx] != PairPending {
			res.AlreadyResolved = append(res.AlreadyResolved, idx)
			continue
		}
		if _, err := r.resolveLocked(ctx, idx, action); err != nil {
			res.Failed = append(res.Failed, idx)
			errs = append(errs, err)
			continue
		}
		res.Resolved = append(res.Resolved, idx)
	}
	return res, errors.Join(errs...)
}

// SkipAll marks every pending pair skipped.
func (r *PairReview) SkipAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i, st := range r.states {
		if st == PairPending {
			r.states[i] = PairSkipped
			n++
		}
	}
	return n
}

func (r *PairReview) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.states {
		if st == PairPending {
			return false
		}
	}
	return true
}

func (r *PairReview) Pending() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []int{}
	for i, st := range r.states {
		if st == PairPending {
			out = append(out, i)
		}
	}
	return out
}

// Deleted returns the IDs removed during this review.
func (r *PairReview) Deleted() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.deleted))
	for _, p := range r.pairs {
		for _, id := range []uuid.UUID{p.ContactA.ID, p.ContactB.ID} {
			if _, ok := r.deleted[id]; ok && !containsID(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (r *PairReview) Counts() PairCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := PairCounts{Total: len(r.states)}
	for _, st := range r.states {
		switch st {
		case PairPending:
			c.Pending++
		case PairKeptA, PairKeptB:
			c.Kept++
		case PairSkipped:
			c.Skipped++
		case PairCascaded:
			c.Cascaded++
		}
	}
	return c
}

func (r *PairReview) Page(page, size int) Page[PairView] {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := len(r.pairs)
	page, size, from, to := pageBounds(page, size, total)
	items := make([]PairView, 0, to-from)
	for i := from; i < to; i++ {
		items = append(items, PairView{Index: i, Pair: r.pairs[i], State: r.states[i]})
	}
	return Page[PairView]{
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
		Items:      items,
	}
}
