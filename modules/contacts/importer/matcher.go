package importer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
)

// MinPhoneDigits is the shortest normalized phone that takes part in matching.
const MinPhoneDigits = 7

type MatchReason string

const (
	ReasonName    MatchReason = "name"
	ReasonEmail   MatchReason = "email"
	ReasonPhone   MatchReason = "phone"
	ReasonAddress MatchReason = "address"
)

// Reasons lists every match reason in canonical order.
var Reasons = []MatchReason{ReasonName, ReasonEmail, ReasonPhone, ReasonAddress}

// ReasonFields names the contact fields each reason compares.
var ReasonFields = map[MatchReason][]Field{
	ReasonName:    {FieldFirstName, FieldLastName},
	ReasonEmail:   {FieldEmail},
	ReasonPhone:   {FieldPhone},
	ReasonAddress: {FieldAddressLine1},
}

// Match is an existing contact found for a candidate.
type Match struct {
	Contact contact.Contact `json:"contact"`
	Reasons []MatchReason   `json:"reasons"`
}

// Pair is two stored contacts that look like the same person.
type Pair struct {
	ContactA contact.Contact `json:"contact_a"`
	ContactB contact.Contact `json:"contact_b"`
	Reasons  []MatchReason   `json:"reasons"`
}

// NormalizePhone keeps the digits of s. It reports false when fewer than
// MinPhoneDigits remain, meaning the value is treated as no phone at all.
func NormalizePhone(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() < MinPhoneDigits {
		return "", false
	}
	return b.String(), true
}

// matchKeys derives the comparison key of every rule for f. A rule with an
// empty key never fires.
func matchKeys(f contact.Fields) map[MatchReason]string {
	keys := make(map[MatchReason]string, len(Reasons))
	first, last := FoldKey(f.FirstName), FoldKey(f.LastName)
	if first != "" && last != "" {
		keys[ReasonName] = first + "\x00" + last
	}
	if email := FoldKey(f.Email); email != "" {
		keys[ReasonEmail] = email
	}
	if digits, ok := NormalizePhone(f.Phone); ok {
		keys[ReasonPhone] = digits
	}
	if line1 := FoldKey(f.AddressLine1); line1 != "" {
		keys[ReasonAddress] = line1
	}
	return keys
}

// FoldKey is the comparison form of a text field: trimmed and lowercased
// with full Unicode case mapping. Stores index the same form.
func FoldKey(s string) string {
	return strings.Map(unicode.ToLower, strings.TrimSpace(s))
}

// MatchReasons returns every rule under which a and b match, in canonical order.
func MatchReasons(a, b contact.Fields) []MatchReason {
	return reasonsFor(matchKeys(a), matchKeys(b))
}

func reasonsFor(ka, kb map[MatchReason]string) []MatchReason {
	var out []MatchReason
	for _, r := range Reasons {
		if va, ok := ka[r]; ok && va == kb[r] {
			out = append(out, r)
		}
	}
	return out
}

// CheckDuplicates returns the existing contacts matching candidate, in the
// order they appear in existing.
func CheckDuplicates(candidate contact.Fields, existing []contact.Contact) []Match {
	ck := matchKeys(candidate)
	if len(ck) == 0 {
		return nil
	}
	var out []Match
	for _, e := range existing {
		if reasons := reasonsFor(ck, matchKeys(e.Fields)); len(reasons) > 0 {
			out = append(out, Match{Contact: e, Reasons: reasons})
		}
	}
	return out
}

// FindAllDuplicates returns every unordered pair of distinct contacts that
// match under at least one rule. Each pair appears once with all of its
// reasons; A precedes B in input order.
func FindAllDuplicates(existing []contact.Contact) []Pair {
	type pairKey struct{ a, b int }
	found := make(map[pairKey]map[MatchReason]struct{})

	for _, r := range Reasons {
		buckets := make(map[string][]int)
		for i, c := range existing {
			if k, ok := matchKeys(c.Fields)[r]; ok {
				buckets[k] = append(buckets[k], i)
			}
		}
		for _, idx := range buckets {
			for x := 0; x < len(idx); x++ {
				for y := x + 1; y < len(idx); y++ {
					a, b := idx[x], idx[y]
					if existing[a].ID == existing[b].ID {
						continue
					}
					k := pairKey{a, b}
					if found[k] == nil {
						found[k] = make(map[MatchReason]struct{})
					}
					found[k][r] = struct{}{}
				}
			}
		}
	}

	keys := make([]pairKey, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		var reasons []MatchReason
		for _, r := range Reasons {
			if _, ok := found[k][r]; ok {
				reasons = append(reasons, r)
			}
		}
		pairs = append(pairs, Pair{ContactA: existing[k.a], ContactB: existing[k.b], Reasons: reasons})
	}
	return pairs
}
