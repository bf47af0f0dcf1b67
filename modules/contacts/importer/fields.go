package importer

import (
	"strings"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
)

// Field identifies the contact attribute a source column is mapped to.
type Field string

const (
	FieldSkip         Field = "__skip__"
	FieldFullName     Field = "full_name"
	FieldFirstName    Field = "first_name"
	FieldLastName     Field = "last_name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
	FieldFullAddress  Field = "full_address"
	FieldAddressLine1 Field = "address_line1"
	FieldAddressLine2 Field = "address_line2"
	FieldCity         Field = "city"
	FieldState        Field = "state"
	FieldZip          Field = "zip"
	FieldCountry      Field = "country"
	FieldOrganization Field = "organization"
	FieldRelationship Field = "relationship"
	FieldNotes        Field = "notes"
	FieldTags         Field = "tags"
)

var AllFields = []Field{
	FieldSkip,
	FieldFullName,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldFullAddress,
	FieldAddressLine1,
	FieldAddressLine2,
	FieldCity,
	FieldState,
	FieldZip,
	FieldCountry,
	FieldOrganization,
	FieldRelationship,
	FieldNotes,
	FieldTags,
}

func ParseField(s string) (Field, bool) {
	s = strings.TrimSpace(s)
	for _, f := range AllFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// IsComposite reports whether the field expands into several sub-fields.
func (f Field) IsComposite() bool {
	return f == FieldFullName || f == FieldFullAddress
}

func setField(c *contact.Fields, f Field, v string) {
	switch f {
	case FieldFirstName:
		c.FirstName = v
	case FieldLastName:
		c.LastName = v
	case FieldEmail:
		c.Email = v
	case FieldPhone:
		c.Phone = v
	case FieldAddressLine1:
		c.AddressLine1 = v
	case FieldAddressLine2:
		c.AddressLine2 = v
	case FieldCity:
		c.City = v
	case FieldState:
		c.State = v
	case FieldZip:
		c.Zip = v
	case FieldCountry:
		c.Country = v
	case FieldOrganization:
		c.Organization = v
	case FieldRelationship:
		c.Relationship = v
	case FieldNotes:
		c.Notes = v
	case FieldTags:
		c.Tags = v
	}
}
