package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/shepherd/modules/contacts/infrastructure/persistence"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/database"
	"github.com/iota-uz/shepherd/pkg/eventbus"
)

type testEnv struct {
	ctx       context.Context
	owner     uuid.UUID
	bus       eventbus.EventBus
	repo      *persistence.ContactRepository
	contacts  *ContactService
	imports   *ImportService
	dupes     *DuplicateService
	history   *HistoryService
	tags      *TagCache
	donations *persistence.DonationRepository
	outreach  *persistence.OutreachRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	bus := eventbus.NewEventPublisher(log)

	repo := persistence.NewContactRepository()
	donations := persistence.NewDonationRepository()
	outreachRepo := persistence.NewOutreachRepository()
	tags := NewTagCache(repo, time.Minute)
	tags.Subscribe(bus)

	return &testEnv{
		ctx:       composables.WithDB(ctx, db),
		owner:     uuid.New(),
		bus:       bus,
		repo:      repo,
		contacts:  NewContactService(repo, bus, tags),
		imports:   NewImportService(repo, bus, time.Hour, 5),
		dupes:     NewDuplicateService(repo, bus, time.Hour),
		history:   NewHistoryService(repo, donations, outreachRepo, bus),
		tags:      tags,
		donations: donations,
		outreach:  outreachRepo,
	}
}

func writeUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
