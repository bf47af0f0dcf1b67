package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
)

const sampleCSV = "Full Name,E-mail,Phone,Address,Tags\n" +
	"John Smith,john@x.com,(217) 555-0100,\"123 Main St, Apt 4, Springfield, IL 62701, US\",donor\n" +
	"John Smith,john@x.com,,,\n" +
	"Madonna,,,,\n" +
	"Jane Doe,jane@x.com,217.555.0100,,board\n" +
	"Zed Ray,,,,\n" +
	"Amy Lin,amy@x.com,,,\n" +
	"Bob Kay,bob@x.com,,,\n"

func TestImportService_Preview(t *testing.T) {
	env := newTestEnv(t)
	path := writeUpload(t, "upload.csv", sampleCSV)

	preview, err := env.imports.Preview(env.ctx, path, ".csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Full Name", "E-mail", "Phone", "Address", "Tags"}, preview.Headers)
	assert.Equal(t, importer.FieldFullName, preview.Mapping["Full Name"])
	assert.Equal(t, importer.FieldFullAddress, preview.Mapping["Address"])
	assert.Len(t, preview.PreviewRows, 5)
	assert.Equal(t, 7, preview.TotalRows)

	_, err = env.imports.Preview(env.ctx, path, ".txt")
	var unsupported *importer.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
}

func TestImportService_ExecuteAndReview(t *testing.T) {
	env := newTestEnv(t)
	path := writeUpload(t, "upload.csv", sampleCSV)

	res, err := env.imports.Execute(env.ctx, env.owner, path, ".csv", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"Row 4: missing required field last_name"}, res.Errors)
	require.Len(t, res.Duplicates, 2)
	require.NotNil(t, res.SessionID)

	assert.Equal(t, []importer.MatchReason{importer.ReasonName, importer.ReasonEmail}, res.Duplicates[0].Matches[0].Reasons)
	assert.Equal(t, "Jane", res.Duplicates[1].Candidate.FirstName)
	assert.Equal(t, []importer.MatchReason{importer.ReasonPhone}, res.Duplicates[1].Matches[0].Reasons)

	stored, err := env.repo.FindAll(env.ctx, env.owner)
	require.NoError(t, err)
	require.Len(t, stored, 4)
	john, err := env.repo.FindByExactField(env.ctx, contact.FieldEmail, "john@x.com", env.owner)
	require.NoError(t, err)
	require.Len(t, john, 1)
	assert.Equal(t, "Springfield", john[0].City)
	assert.Equal(t, "Apt 4", john[0].AddressLine2)

	counts, err := env.imports.ResolveOne(env.ctx, env.owner, *res.SessionID, 1, importer.ActionImport)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Imported)

	bulk, err := env.imports.ResolveSelected(env.ctx, env.owner, *res.SessionID, []int{0, 1}, importer.ActionSkip)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, bulk.Resolved)
	assert.Equal(t, []int{1}, bulk.AlreadyResolved)

	session, err := env.imports.Session(env.owner, *res.SessionID)
	require.NoError(t, err)
	assert.True(t, session.IsComplete())

	stored, err = env.repo.FindAll(env.ctx, env.owner)
	require.NoError(t, err)
	assert.Len(t, stored, 5)

	tags, err := env.contacts.Tags(env.ctx, env.owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"board", "donor"}, tags)
}

func TestImportService_IdenticalRowsSkipLeavesOne(t *testing.T) {
	env := newTestEnv(t)
	path := writeUpload(t, "dup.csv", "Name,Email\nJohn Smith,john@x.com\nJohn Smith,john@x.com\n")

	res, err := env.imports.Execute(env.ctx, env.owner, path, ".csv", nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)
	require.Len(t, res.Duplicates, 1)

	n, err := env.imports.SkipAll(env.owner, *res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := env.repo.FindAll(env.ctx, env.owner)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestImportService_ExplicitMapping(t *testing.T) {
	env := newTestEnv(t)
	path := writeUpload(t, "custom.csv", "Who,Family,Church\nAnn Lee,Leigh,Grace\n")

	_, err := env.imports.Execute(env.ctx, env.owner, path, ".csv", importer.Mapping{"Who": "nickname"})
	require.ErrorIs(t, err, ErrInvalidMapping)

	res, err := env.imports.Execute(env.ctx, env.owner, path, ".csv", importer.Mapping{
		"Who":    importer.FieldFullName,
		"Family": importer.FieldLastName,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)
	assert.Nil(t, res.SessionID)
	assert.Empty(t, res.Duplicates)

	stored, err := env.repo.FindAll(env.ctx, env.owner)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Leigh", stored[0].LastName)
	assert.Empty(t, stored[0].Organization)
}

func TestImportService_SessionsAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	path := writeUpload(t, "dup.csv", "Name\nAnn Lee\nAnn Lee\n")
	res, err := env.imports.Execute(env.ctx, env.owner, path, ".csv", nil)
	require.NoError(t, err)
	require.NotNil(t, res.SessionID)

	_, err = env.imports.ResolveOne(env.ctx, uuid.New(), *res.SessionID, 0, importer.ActionSkip)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = env.imports.ResolveOne(env.ctx, env.owner, *res.SessionID, 0, importer.ActionSkip)
	require.NoError(t, err)
	_, err = env.imports.ResolveOne(env.ctx, env.owner, *res.SessionID, 0, importer.ActionImport)
	var already *importer.AlreadyResolvedError
	require.True(t, errors.As(err, &already))

	assert.True(t, env.imports.Close(env.owner, *res.SessionID))
	_, err = env.imports.Session(env.owner, *res.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
