package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain name", input: "Kroger", expected: "kroger"},
		{name: "lowercases", input: "KROGER", expected: "kroger"},
		{name: "trims whitespace", input: "  Kroger  ", expected: "kroger"},
		{name: "drops format descriptor", input: "Walmart Supercenter", expected: "walmart"},
		{name: "drops multiple descriptors", input: "Walmart Neighborhood Market", expected: "walmart"},
		{name: "drops corporate suffixes", input: "Wal-Mart Stores, Inc.", expected: "walmart"},
		{name: "hyphenated brand override", input: "H-E-B", expected: "h-e-b"},
		{name: "heb collapsed override", input: "HEB", expected: "h-e-b"},
		{name: "apostrophe brand", input: "Trader Joe's", expected: "trader joes"},
		{name: "sams club", input: "Sam's Club", expected: "sams club"},
		{name: "ampersand folds to and", input: "H & M Grocers", expected: "h and m grocers"},
		{name: "accents stripped", input: "Café Olé Market", expected: "cafe ole"},
		{name: "punctuation becomes spaces", input: "7-Eleven", expected: "7 eleven"},
		{name: "descriptor-only collapses to empty", input: "Super Store", expected: ""},
		{name: "empty input", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompanyKey(tt.input))
		})
	}
}

func TestCompanyKeyGroupsFormats(t *testing.T) {
	// All Walmart formats must land in the same group.
	variants := []string{
		"Walmart",
		"Walmart Supercenter",
		"Walmart Neighborhood Market",
		"Wal-Mart",
	}
	for _, v := range variants {
		assert.Equal(t, "walmart", CompanyKey(v), "variant %q", v)
	}
}

func TestCompanyKeyDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, CompanyKey("Whole Foods Market"), CompanyKey("Whole Foods Market"))
	}
}
