package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/eventbus"
	"github.com/iota-uz/shepherd/pkg/metrics"
)

var ErrInvalidMapping = errors.New("invalid column mapping")

const DefaultPreviewRows = 5

type Preview struct {
	Headers     []string          `json:"headers"`
	Mapping     importer.Mapping  `json:"mapping"`
	PreviewRows []importer.RawRow `json:"preview_rows"`
	TotalRows   int               `json:"total_rows"`
}

type ExecuteResult struct {
	SessionID  *uuid.UUID                `json:"session_id,omitempty"`
	Imported   int                       `json:"imported"`
	Skipped    int                       `json:"skipped"`
	Errors     []string                  `json:"errors"`
	Duplicates []importer.DuplicateEntry `json:"duplicates"`
}

type ImportService struct {
	repo        contact.Repository
	publisher   eventbus.EventBus
	sessions    *Registry[*importer.Session]
	previewRows int
}

func NewImportService(repo contact.Repository, publisher eventbus.EventBus, sessionTTL time.Duration, previewRows int) *ImportService {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	return &ImportService{
		repo:        repo,
		publisher:   publisher,
		sessions:    NewRegistry[*importer.Session](sessionTTL),
		previewRows: previewRows,
	}
}

// Preview parses the file and proposes a mapping without touching the store.
func (s *ImportService) Preview(ctx context.Context, path, ext string) (Preview, error) {
	table, err := importer.ParseFile(path, ext)
	if err != nil {
		return Preview{}, err
	}
	rows := table.Rows
	if len(rows) > s.previewRows {
		rows = rows[:s.previewRows]
	}
	composables.UseLogger(ctx).WithField("rows", table.Len()).Debug("import preview parsed")
	return Preview{
		Headers:     table.Headers,
		Mapping:     importer.AutoDetect(table.Headers),
		PreviewRows: rows,
		TotalRows:   table.Len(),
	}, nil
}

// Execute projects the file through mapping, commits every candidate that is
// not a duplicate in one transaction and opens a review session for the rest.
// A nil mapping falls back to auto-detection.
func (s *ImportService) Execute(ctx context.Context, ownerID uuid.UUID, path, ext string, mapping importer.Mapping) (ExecuteResult, error) {
	if mapping != nil {
		if err := mapping.Validate(); err != nil {
			return ExecuteResult{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
	}
	table, err := importer.ParseFile(path, ext)
	if err != nil {
		return ExecuteResult{}, err
	}
	if mapping == nil {
		mapping = importer.AutoDetect(table.Headers)
	}
	projected := importer.Project(table, mapping.Complete(table.Headers))

	var screened importer.ScreenResult
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindAll(txCtx, ownerID)
		if err != nil {
			return err
		}
		screened = importer.Screen(ownerID, existing, projected.Contacts)
		return s.repo.InsertMany(txCtx, screened.Accepted)
	})
	if err != nil {
		return ExecuteResult{}, &importer.StorePersistenceError{Op: "insert", Index: -1, Err: err}
	}

	for _, c := range screened.Accepted {
		s.publisher.Publish(&contact.CreatedEvent{OwnerID: ownerID, Result: c, Source: contact.SourceImport})
	}
	metrics.ObserveImport(len(screened.Accepted), projected.Skipped, len(screened.Duplicates))

	res := ExecuteResult{
		Imported:   len(screened.Accepted),
		Skipped:    projected.Skipped,
		Errors:     projected.Errors,
		Duplicates: screened.Duplicates,
	}
	if res.Duplicates == nil {
		res.Duplicates = []importer.DuplicateEntry{}
	}
	if len(screened.Duplicates) > 0 {
		session := importer.NewSession(screened.Duplicates, s.committer(ownerID))
		id := s.sessions.Put(ownerID, session)
		res.SessionID = &id
		metrics.SetActiveSessions("import", s.sessions.Len())
	}

	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"owner_id":   ownerID,
		"imported":   res.Imported,
		"skipped":    res.Skipped,
		"duplicates": len(res.Duplicates),
	}).Info("import executed")
	return res, nil
}

func (s *ImportService) committer(ownerID uuid.UUID) importer.Committer {
	return importer.CommitterFunc(func(ctx context.Context, candidate contact.Fields) (uuid.UUID, error) {
		c := contact.New(ownerID, candidate)
		id, err := s.repo.Insert(ctx, c)
		if err != nil {
			return uuid.Nil, err
		}
		s.publisher.Publish(&contact.CreatedEvent{OwnerID: ownerID, Result: c, Source: contact.SourceImport})
		return id, nil
	})
}

func (s *ImportService) Session(ownerID, sessionID uuid.UUID) (*importer.Session, error) {
	return s.sessions.Get(ownerID, sessionID)
}

func (s *ImportService) ResolveOne(ctx context.Context, ownerID, sessionID uuid.UUID, idx int, action importer.Action) (importer.Counts, error) {
	session, err := s.sessions.Get(ownerID, sessionID)
	if err != nil {
		return importer.Counts{}, err
	}
	if err := session.ResolveOne(ctx, idx, action); err != nil {
		return session.Counts(), err
	}
	metrics.ObserveResolution(string(action), 1)
	return session.Counts(), nil
}

func (s *ImportService) ResolveSelected(ctx context.Context, ownerID, sessionID uuid.UUID, indices []int, action importer.Action) (importer.BulkResult, error) {
	session, err := s.sessions.Get(ownerID, sessionID)
	if err != nil {
		return importer.BulkResult{}, err
	}
	res, err := session.ResolveSelected(ctx, indices, action)
	metrics.ObserveResolution(string(action), len(res.Resolved))
	return res, err
}

func (s *ImportService) SkipAll(ownerID, sessionID uuid.UUID) (int, error) {
	session, err := s.sessions.Get(ownerID, sessionID)
	if err != nil {
		return 0, err
	}
	n := session.SkipAll()
	metrics.ObserveResolution(string(importer.ActionSkip), n)
	return n, nil
}

// Close discards a session. Nothing committed through it is rolled back.
func (s *ImportService) Close(ownerID, sessionID uuid.UUID) bool {
	ok := s.sessions.Delete(ownerID, sessionID)
	metrics.SetActiveSessions("import", s.sessions.Len())
	return ok
}
