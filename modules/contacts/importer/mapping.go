package importer

import (
	"fmt"
	"sort"
	"strings"
)

// Mapping assigns every source header a target Field.
type Mapping map[string]Field

type aliasGroup struct {
	Field   Field
	Aliases []string
}

var aliasTable = []aliasGroup{
	{FieldFullName, []string{"full name", "fullname", "full_name", "name", "contact", "contact name", "display name"}},
	{FieldFirstName, []string{"first name", "first_name", "firstname", "fname", "first", "given name"}},
	{FieldLastName, []string{"last name", "last_name", "lastname", "lname", "last", "surname", "family name"}},
	{FieldEmail, []string{"email", "e-mail", "email address", "e-mail address", "mail"}},
	{FieldPhone, []string{"phone", "phone number", "telephone", "tel", "mobile", "cell", "cell phone"}},
	{FieldFullAddress, []string{"address", "full address", "full_address", "mailing address"}},
	{FieldAddressLine1, []string{"address line 1", "address_line1", "address1", "address 1", "street", "street address"}},
	{FieldAddressLine2, []string{"address line 2", "address_line2", "address2", "address 2", "apt", "suite", "unit"}},
	{FieldCity, []string{"city", "town"}},
	{FieldState, []string{"state", "province", "region", "st"}},
	{FieldZip, []string{"zip", "zip code", "zipcode", "postal code", "postcode", "postal"}},
	{FieldCountry, []string{"country", "nation"}},
	{FieldOrganization, []string{"organization", "organisation", "company", "church", "org"}},
	{FieldRelationship, []string{"relationship", "relation", "connection"}},
	{FieldNotes, []string{"notes", "note", "comments", "comment"}},
	{FieldTags, []string{"tags", "tag", "labels", "groups"}},
}

var aliasIndex = mustIndexAliases(aliasTable)

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func indexAliases(groups []aliasGroup) (map[string]Field, error) {
	idx := make(map[string]Field)
	for _, g := range groups {
		for _, a := range g.Aliases {
			key := normalizeHeader(a)
			if prev, ok := idx[key]; ok {
				return nil, fmt.Errorf("alias %q is claimed by both %s and %s", key, prev, g.Field)
			}
			idx[key] = g.Field
		}
	}
	return idx, nil
}

func mustIndexAliases(groups []aliasGroup) map[string]Field {
	idx, err := indexAliases(groups)
	if err != nil {
		panic(err)
	}
	return idx
}

// ValidateAliases reports an error when an alias belongs to more than one field.
func ValidateAliases() error {
	_, err := indexAliases(aliasTable)
	return err
}

// Aliases returns the recognized header aliases per field.
func Aliases() map[Field][]string {
	out := make(map[Field][]string, len(aliasTable))
	for _, g := range aliasTable {
		out[g.Field] = append([]string(nil), g.Aliases...)
	}
	return out
}

// AutoDetect maps each header whose normalized form is a known alias.
// Unrecognized headers map to FieldSkip.
func AutoDetect(headers []string) Mapping {
	m := make(Mapping, len(headers))
	for _, h := range headers {
		if f, ok := aliasIndex[normalizeHeader(h)]; ok {
			m[h] = f
			continue
		}
		m[h] = FieldSkip
	}
	return m
}

// Complete returns a mapping covering exactly the given headers. Headers
// without a target are skipped, keys not present in headers are dropped.
func (m Mapping) Complete(headers []string) Mapping {
	out := make(Mapping, len(headers))
	for _, h := range headers {
		f, ok := m[h]
		if !ok || f == "" {
			f = FieldSkip
		}
		out[h] = f
	}
	return out
}

// Validate rejects targets that are not known fields.
func (m Mapping) Validate() error {
	var unknown []string
	for h, f := range m {
		if _, ok := ParseField(string(f)); !ok {
			unknown = append(unknown, fmt.Sprintf("%s=%s", h, f))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown mapping target(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}
