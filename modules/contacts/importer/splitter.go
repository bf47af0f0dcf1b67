package importer

import (
	"regexp"
	"strings"
)

var (
	countryNames = map[string]struct{}{
		"united states":  {},
		"usa":            {},
		"us":             {},
		"canada":         {},
		"uk":             {},
		"united kingdom": {},
		"australia":      {},
		"mexico":         {},
	}
	countryTokenRe = regexp.MustCompile(`^[A-Za-z]{2,3}$`)
	zipRe          = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	stateZipRe     = regexp.MustCompile(`^([A-Za-z]{2})\s+(\d{5}(?:-\d{4})?)$`)
	stateRe        = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// SplitFullName splits on the first space. A single token becomes
// first_name only, empty input yields an empty map.
func SplitFullName(s string) map[Field]string {
	s = strings.TrimSpace(s)
	out := make(map[Field]string, 2)
	if s == "" {
		return out
	}
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		out[FieldFirstName] = s
		return out
	}
	out[FieldFirstName] = s[:i]
	out[FieldLastName] = strings.TrimSpace(s[i+1:])
	return out
}

// SplitFullAddress parses a comma separated address from the right:
// country, zip, state (optionally with zip), city, then street lines.
// A bare two letter segment is read as a state even if it was meant as a city.
func SplitFullAddress(s string) map[Field]string {
	out := make(map[Field]string)
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	end := len(parts)
	if end == 0 {
		return out
	}

	if end >= 3 {
		last := parts[end-1]
		if _, ok := countryNames[strings.ToLower(last)]; ok || countryTokenRe.MatchString(last) {
			out[FieldCountry] = last
			end--
		}
	}
	if end >= 3 && zipRe.MatchString(parts[end-1]) {
		out[FieldZip] = parts[end-1]
		end--
	}
	if end >= 2 {
		last := parts[end-1]
		if m := stateZipRe.FindStringSubmatch(last); m != nil {
			out[FieldState] = m[1]
			if _, ok := out[FieldZip]; !ok {
				out[FieldZip] = m[2]
			}
			end--
		} else if stateRe.MatchString(last) {
			out[FieldState] = last
			end--
		}
	}
	if end >= 2 {
		out[FieldCity] = parts[end-1]
		end--
	}
	if end >= 1 {
		out[FieldAddressLine1] = parts[0]
		if end > 1 {
			out[FieldAddressLine2] = strings.Join(parts[1:end], ", ")
		}
	}
	return out
}
