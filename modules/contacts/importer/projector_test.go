package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_ExplicitFieldWinsOverComposite(t *testing.T) {
	table := &Table{
		Headers: []string{"A", "B"},
		Rows: []RawRow{
			{"A": "John Smith", "B": "Smythe"},
			{"A": "Jane Doe", "B": ""},
		},
	}
	res := Project(table, Mapping{"A": FieldFullName, "B": FieldLastName})

	require.Equal(t, 2, res.Imported)
	assert.Equal(t, "John", res.Contacts[0].FirstName)
	assert.Equal(t, "Smythe", res.Contacts[0].LastName)
	assert.Equal(t, "Doe", res.Contacts[1].LastName)
}

func TestProject_ExplicitWinsRegardlessOfColumnOrder(t *testing.T) {
	table := &Table{
		Headers: []string{"City", "Address", "Name"},
		Rows: []RawRow{{
			"City":    "Shelbyville",
			"Address": "1 Elm St, Springfield, IL 62701",
			"Name":    "Ann Lee",
		}},
	}
	res := Project(table, Mapping{"City": FieldCity, "Address": FieldFullAddress, "Name": FieldFullName})

	require.Len(t, res.Contacts, 1)
	c := res.Contacts[0]
	assert.Equal(t, "Shelbyville", c.City)
	assert.Equal(t, "IL", c.State)
	assert.Equal(t, "62701", c.Zip)
	assert.Equal(t, "1 Elm St", c.AddressLine1)
	assert.Equal(t, "US", c.Country)
	assert.Equal(t, "Ann", c.FirstName)
}

func TestProject_RowRejectionAccounting(t *testing.T) {
	table := &Table{Headers: []string{"First", "Last"}}
	for i := 0; i < 10; i++ {
		last := fmt.Sprintf("L%d", i)
		if i == 1 || i == 4 || i == 9 {
			last = "  "
		}
		table.Rows = append(table.Rows, RawRow{"First": fmt.Sprintf("F%d", i), "Last": last})
	}
	res := Project(table, AutoDetect(table.Headers))

	assert.Equal(t, 7, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, []string{
		"Row 3: missing required field last_name",
		"Row 6: missing required field last_name",
		"Row 11: missing required field last_name",
	}, res.Errors)
	assert.Len(t, res.Contacts, 7)
	assert.Equal(t, "F0", res.Contacts[0].FirstName)
	assert.Equal(t, "F2", res.Contacts[1].FirstName)
}

func TestProject_MissingBothNames(t *testing.T) {
	table := &Table{Headers: []string{"Email"}, Rows: []RawRow{{"Email": "x@y.z"}}}
	res := Project(table, Mapping{"Email": FieldEmail})
	assert.Equal(t, []string{"Row 2: missing required field first_name, last_name"}, res.Errors)
}

func TestProject_SkipAndDefaults(t *testing.T) {
	table := &Table{
		Headers: []string{"Name", "Secret", "Country", "Tags"},
		Rows:    []RawRow{{"Name": "Ann Lee", "Secret": "s3cr3t", "Country": "", "Tags": " donor, board "}},
	}
	res := Project(table, Mapping{"Name": FieldFullName, "Secret": FieldSkip, "Country": FieldCountry, "Tags": FieldTags})

	require.Len(t, res.Contacts, 1)
	c := res.Contacts[0]
	assert.Equal(t, "US", c.Country)
	assert.Equal(t, "donor, board", c.Tags)
	assert.Empty(t, c.Notes)
}
