package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/eventbus"
	"github.com/iota-uz/shepherd/pkg/metrics"
)

type ScanResult struct {
	SessionID uuid.UUID       `json:"session_id"`
	Pairs     []importer.Pair `json:"pairs"`
}

// DuplicateService scans an owner's contacts for duplicate pairs and drives
// their review.
type DuplicateService struct {
	repo      contact.Repository
	publisher eventbus.EventBus
	reviews   *Registry[*importer.PairReview]
}

func NewDuplicateService(repo contact.Repository, publisher eventbus.EventBus, sessionTTL time.Duration) *DuplicateService {
	return &DuplicateService{
		repo:      repo,
		publisher: publisher,
		reviews:   NewRegistry[*importer.PairReview](sessionTTL),
	}
}

func (s *DuplicateService) Scan(ctx context.Context, ownerID uuid.UUID) (ScanResult, error) {
	all, err := s.repo.FindAll(ctx, ownerID)
	if err != nil {
		return ScanResult{}, err
	}
	pairs := importer.FindAllDuplicates(all)
	if pairs == nil {
		pairs = []importer.Pair{}
	}
	review := importer.NewPairReview(pairs, s.deleter(ownerID))
	id := s.reviews.Put(ownerID, review)
	metrics.SetActiveSessions("dedupe", s.reviews.Len())
	composables.UseLogger(ctx).WithField("pairs", len(pairs)).Info("duplicate scan finished")
	return ScanResult{SessionID: id, Pairs: pairs}, nil
}

func (s *DuplicateService) deleter(ownerID uuid.UUID) importer.Deleter {
	return importer.DeleterFunc(func(ctx context.Context, id uuid.UUID) error {
		if err := s.repo.Delete(ctx, ownerID, id); err != nil {
			return err
		}
		s.publisher.Publish(&contact.DeletedEvent{OwnerID: ownerID, ContactID: id, Source: contact.SourceDedupe})
		return nil
	})
}

func (s *DuplicateService) Review(ownerID, reviewID uuid.UUID) (*importer.PairReview, error) {
	return s.reviews.Get(ownerID, reviewID)
}

// Resolve applies action to one pair and returns the indexes cascaded by it.
func (s *DuplicateService) Resolve(ctx context.Context, ownerID, reviewID uuid.UUID, idx int, action importer.PairAction) ([]int, error) {
	review, err := s.reviews.Get(ownerID, reviewID)
	if err != nil {
		return nil, err
	}
	cascaded, err := review.Resolve(ctx, idx, action)
	if err != nil {
		return nil, err
	}
	metrics.ObserveResolution(string(action), 1)
	return cascaded, nil
}

func (s *DuplicateService) ResolveSelected(ctx context.Context, ownerID, reviewID uuid.UUID, indices []int, action importer.PairAction) (importer.BulkResult, error) {
	review, err := s.reviews.Get(ownerID, reviewID)
	if err != nil {
		return importer.BulkResult{}, err
	}
	res, err := review.ResolveSelected(ctx, indices, action)
	metrics.ObserveResolution(string(action), len(res.Resolved))
	return res, err
}

func (s *DuplicateService) SkipAll(ownerID, reviewID uuid.UUID) (int, error) {
	review, err := s.reviews.Get(ownerID, reviewID)
	if err != nil {
		return 0, err
	}
	return review.SkipAll(), nil
}
