package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/donation"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/outreach"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/database"
)

func newTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return composables.WithDB(ctx, db)
}

func TestContactRepository_InsertAndFind(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewContactRepository()
	owner := uuid.New()

	ann := contact.New(owner, contact.Fields{FirstName: "Ann", LastName: "Lee", Email: "Ann@X.com", Phone: "(217) 555-0100", Tags: "donor, board"})
	bob := contact.New(owner, contact.Fields{FirstName: "Bob", LastName: "Ray", AddressLine1: "1 Main St", Tags: "Donor"})
	stranger := contact.New(uuid.New(), contact.Fields{FirstName: "Ann", LastName: "Lee"})
	require.NoError(t, repo.InsertMany(ctx, []contact.Contact{ann, bob, stranger}))

	got, err := repo.GetByID(ctx, owner, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann@X.com", got.Email)
	assert.Equal(t, "US", got.Country)
	assert.Equal(t, owner, got.OwnerID)

	_, err = repo.GetByID(ctx, owner, stranger.ID)
	require.ErrorIs(t, err, contact.ErrNotFound)

	byEmail, err := repo.FindByExactField(ctx, contact.FieldEmail, " ann@x.com ", owner)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, ann.ID, byEmail[0].ID)

	byAddress, err := repo.FindByExactField(ctx, contact.FieldAddressLine1, "1 MAIN ST", owner)
	require.NoError(t, err)
	require.Len(t, byAddress, 1)
	assert.Equal(t, bob.ID, byAddress[0].ID)

	_, err = repo.FindByExactField(ctx, "notes; DROP TABLE contacts", "x", owner)
	require.ErrorIs(t, err, ErrUnknownField)

	byPhone, err := repo.FindByNormalizedPhone(ctx, "2175550100", owner)
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, ann.ID, byPhone[0].ID)

	all, err := repo.FindAll(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tags, err := repo.Tags(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"board", "donor"}, tags)
}

func TestContactRepository_FindByExactFieldFoldsUnicode(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewContactRepository()
	owner := uuid.New()

	c := contact.New(owner, contact.Fields{FirstName: "Émile", LastName: "Öztürk", Email: "ÉMILE@ÖRNEK.COM"})
	require.NoError(t, repo.InsertMany(ctx, []contact.Contact{c}))

	byName, err := repo.FindByExactField(ctx, contact.FieldLastName, "öztürk", owner)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, c.ID, byName[0].ID)

	byEmail, err := repo.FindByExactField(ctx, contact.FieldEmail, " émile@örnek.com ", owner)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)

	c.LastName = "Çelik"
	require.NoError(t, repo.Update(ctx, c))
	byName, err = repo.FindByExactField(ctx, contact.FieldLastName, "çelik", owner)
	require.NoError(t, err)
	require.Len(t, byName, 1)
}

func TestContactRepository_GetPaginated(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewContactRepository()
	owner := uuid.New()
	var batch []contact.Contact
	for _, n := range []string{"Adams", "Baker", "Clark", "Davis"} {
		tags := ""
		if n != "Clark" {
			tags = "volunteer"
		}
		batch = append(batch, contact.New(owner, contact.Fields{FirstName: "F", LastName: n, Tags: tags}))
	}
	require.NoError(t, repo.InsertMany(ctx, batch))

	page, total, err := repo.GetPaginated(ctx, &contact.FindParams{OwnerID: owner, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Clark", page[0].LastName)

	page, total, err = repo.GetPaginated(ctx, &contact.FindParams{OwnerID: owner, Tag: "VOLUNTEER", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 3)
}

func TestContactRepository_UpdateAndDelete(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewContactRepository()
	owner := uuid.New()
	c := contact.New(owner, contact.Fields{FirstName: "Ann", LastName: "Lee", Phone: "555"})
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	c.Phone = "555-0199"
	require.NoError(t, repo.Update(ctx, c))
	found, err := repo.FindByNormalizedPhone(ctx, "5550199", owner)
	require.NoError(t, err)
	require.Len(t, found, 1)

	other := c
	other.OwnerID = uuid.New()
	require.ErrorIs(t, repo.Update(ctx, other), contact.ErrNotFound)

	now := time.Now()
	d := donation.CreateDTO{Amount: "25"}
	don, err := d.ToEntity(owner, c.ID, now)
	require.NoError(t, err)
	require.NoError(t, NewDonationRepository().Create(ctx, don))

	require.NoError(t, repo.Delete(ctx, owner, c.ID))
	require.ErrorIs(t, repo.Delete(ctx, owner, c.ID), contact.ErrNotFound)

	left, err := NewDonationRepository().ListByContact(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestContactRepository_Aggregates(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewContactRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	owner := uuid.New()
	c := contact.New(owner, contact.Fields{FirstName: "Ann", LastName: "Lee"})
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	donations := NewDonationRepository()
	for i, amount := range []string{"100.50", "400"} {
		dto := donation.CreateDTO{Amount: amount, DonatedAt: now.AddDate(0, 0, -10*(2-i))}
		d, err := dto.ToEntity(owner, c.ID, now)
		require.NoError(t, err)
		require.NoError(t, donations.Create(ctx, d))
	}
	o := (&outreach.CreateDTO{Channel: "email", OccurredAt: now.AddDate(0, 0, -73)}).ToEntity(owner, c.ID, now)
	require.NoError(t, NewOutreachRepository().Create(ctx, o))

	got, err := repo.GetByID(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalDonation.Equal(decimal.RequireFromString("500.50")))
	assert.True(t, got.LastDonation.Equal(decimal.NewFromInt(400)))
	require.NotNil(t, got.LastDonationAt)
	assert.WithinDuration(t, now.AddDate(0, 0, -10), *got.LastDonationAt, time.Second)
	require.NotNil(t, got.LastOutreachAt)
	// 48 points for a 73 day old outreach plus 20 for 500.50 given.
	assert.Equal(t, 68, got.WarmthScore)

	history, err := donations.ListByContact(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "USD", history[0].Currency)
	assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(400)))
}

func TestContactRepository_InsertManyRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	ctx := composables.WithDB(context.Background(), sqlx.NewDb(sqlDB, "sqlite3"))

	boom := errors.New("constraint failed")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO contacts").WillReturnError(boom)
	mock.ExpectRollback()

	owner := uuid.New()
	err = NewContactRepository().InsertMany(ctx, []contact.Contact{
		contact.New(owner, contact.Fields{FirstName: "A", LastName: "One"}),
		contact.New(owner, contact.Fields{FirstName: "B", LastName: "Two"}),
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_QueryFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	ctx := composables.WithDB(context.Background(), sqlx.NewDb(sqlDB, "sqlite3"))

	mock.ExpectQuery("SELECT .* FROM contacts").WillReturnError(errors.New("database is locked"))
	_, err = NewContactRepository().FindAll(ctx, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select contacts")
	require.NoError(t, mock.ExpectationsWereMet())
}
