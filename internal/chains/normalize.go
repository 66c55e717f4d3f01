// Package chains derives company keys from chain display names and resolves
// which chains belong to the same parent company.
package chains

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// formatDescriptors are store-format words removed from chain names before
// grouping, so "Walmart Supercenter" and "Walmart Neighborhood Market" both
// key to "walmart".
var formatDescriptors = map[string]struct{}{
	"supercenter":  {},
	"superstore":   {},
	"neighborhood": {},
	"market":       {},
	"marketplace":  {},
	"pharmacy":     {},
	"store":        {},
	"stores":       {},
	"shop":         {},
	"fresh":        {},
	"fare":         {},
	"express":      {},
	"super":        {},
	"outlet":       {},
	"co":           {},
	"inc":          {},
	"llc":          {},
}

// companyKeyOverrides corrects known abbreviation collisions after the
// mechanical normalization has run.
var companyKeyOverrides = map[string]string{
	"wal mart":     "walmart",
	"h e b":        "h-e-b",
	"heb":          "h-e-b",
	"sam s club":   "sams club",
	"sams club":    "sams club",
	"trader joe s": "trader joes",
	"trader joes":  "trader joes",
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CompanyKey derives the canonical grouping key for a chain display name.
// Deterministic and total: lowercase, strip accents, "&" becomes "and",
// punctuation becomes spaces, format-descriptor words are dropped, whitespace
// collapses, and the override table corrects known collisions.
//
// The key is derived on read everywhere it is needed; it is never persisted,
// so a rename can never leave stale group membership behind.
func CompanyKey(name string) string {
	folded, _, _ := transform.String(stripAccents, strings.ToLower(strings.TrimSpace(name)))
	folded = strings.ReplaceAll(folded, "&", " and ")

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, drop := formatDescriptors[w]; !drop {
			kept = append(kept, w)
		}
	}
	key := strings.Join(kept, " ")

	if override, ok := companyKeyOverrides[key]; ok {
		return override
	}
	return key
}
