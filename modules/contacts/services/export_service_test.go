package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
)

func TestExportService_RoundTripsThroughImport(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.InsertMany(env.ctx, []contact.Contact{
		contact.New(env.owner, contact.Fields{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", City: "Springfield", Tags: "donor"}),
		contact.New(env.owner, contact.Fields{FirstName: "Bob", LastName: "Ray", Phone: "217-555-0100", AddressLine1: "1 Main St"}),
	}))

	var buf bytes.Buffer
	n, err := NewExportService(env.repo).WriteXLSX(env.ctx, env.owner, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	table, err := importer.ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	mapping := importer.AutoDetect(table.Headers)
	assert.Equal(t, importer.FieldAddressLine1, mapping["Address Line 1"])
	assert.Equal(t, importer.FieldSkip, mapping["Warmth"])

	res := importer.Project(table, mapping)
	require.Equal(t, 2, res.Imported)
	assert.Equal(t, "ann@x.com", res.Contacts[0].Email)
	assert.Equal(t, "donor", res.Contacts[0].Tags)
	assert.Equal(t, "1 Main St", res.Contacts[1].AddressLine1)
	assert.Equal(t, "217-555-0100", res.Contacts[1].Phone)
}
