package importer

import (
	"strings"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
)

// HeaderRowOffset converts a zero-based data row index into the row number
// a user sees in a spreadsheet that has a header row.
const HeaderRowOffset = 2

type ProjectionResult struct {
	Contacts []contact.Fields `json:"contacts"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []string         `json:"errors"`
}

// Project applies mapping to every row of t. Columns are read in header
// order; when several columns target the same field the first non-empty
// value wins. Composite columns only fill sub-fields left empty by
// explicitly mapped columns. Rows without a first or last name are rejected.
func Project(t *Table, mapping Mapping) ProjectionResult {
	res := ProjectionResult{
		Contacts: make([]contact.Fields, 0, len(t.Rows)),
		Errors:   []string{},
	}
	for i, row := range t.Rows {
		fields, missing := projectRow(t.Headers, row, mapping)
		if len(missing) > 0 {
			res.Skipped++
			err := &MissingRequiredFieldError{Row: i + HeaderRowOffset, Fields: missing}
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Imported++
		res.Contacts = append(res.Contacts, fields)
	}
	return res
}

func projectRow(headers []string, row RawRow, mapping Mapping) (contact.Fields, []Field) {
	explicit := make(map[Field]string)
	var names, addresses []string
	for _, h := range headers {
		f, ok := mapping[h]
		if !ok || f == FieldSkip || f == "" {
			continue
		}
		v := strings.TrimSpace(row[h])
		if v == "" {
			continue
		}
		switch f {
		case FieldFullName:
			names = append(names, v)
		case FieldFullAddress:
			addresses = append(addresses, v)
		default:
			if explicit[f] == "" {
				explicit[f] = v
			}
		}
	}

	fill := func(parts map[Field]string) {
		for f, v := range parts {
			if explicit[f] == "" && v != "" {
				explicit[f] = v
			}
		}
	}
	for _, n := range names {
		fill(SplitFullName(n))
	}
	for _, a := range addresses {
		fill(SplitFullAddress(a))
	}

	var c contact.Fields
	for f, v := range explicit {
		setField(&c, f, v)
	}
	c = contact.Normalize(c)

	var missing []Field
	if c.FirstName == "" {
		missing = append(missing, FieldFirstName)
	}
	if c.LastName == "" {
		missing = append(missing, FieldLastName)
	}
	return c, missing
}
