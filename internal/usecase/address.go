package usecase

import (
	"strings"

	"github.com/buyercheck/backend/internal/domain"
)

// NormalizeAddress splits a comma-separated Malaysian address into its parts.
// Components are read from the end: country, state, city, then an optional
// numeric postcode; whatever remains forms the street lines in their original
// order. Lines beyond the third are folded into Line3.
func NormalizeAddress(address string) domain.NormalizedAddress {
	var parts []string
	for _, p := range strings.Split(address, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	reverse(parts)

	var out domain.NormalizedAddress
	out.Country = at(parts, 0)
	out.State = at(parts, 1)
	out.City = at(parts, 2)

	var rest []string
	if len(parts) > 3 {
		rest = parts[3:]
	}
	if len(rest) > 0 && isNumeric(rest[0]) {
		out.Postcode = rest[0]
		rest = rest[1:]
	}

	lines := append([]string(nil), rest...)
	reverse(lines)
	out.Line1 = at(lines, 0)
	out.Line2 = at(lines, 1)
	if len(lines) > 2 {
		out.Line3 = strings.Join(lines[2:], ", ")
	}
	return out
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
