package models

import (
	"fmt"
	"strings"
	"time"

	"plantpantry/internal/geo"
	"plantpantry/pkg/domain"
	dErrors "plantpantry/pkg/domain-errors"
)

// StoreType distinguishes how a store sells.
type StoreType string

const (
	StoreTypePhysical       StoreType = "physical"
	StoreTypeOnlineRetailer StoreType = "online_retailer"
	StoreTypeBrandDirect    StoreType = "brand_direct"
)

// Valid reports whether t is a known store type.
func (t StoreType) Valid() bool {
	switch t {
	case StoreTypePhysical, StoreTypeOnlineRetailer, StoreTypeBrandDirect:
		return true
	}
	return false
}

// Physical reports whether the store is a brick-and-mortar location.
func (t StoreType) Physical() bool { return t == StoreTypePhysical }

// ChainType classifies a chain's footprint.
type ChainType string

const (
	ChainTypeNational ChainType = "national"
	ChainTypeRegional ChainType = "regional"
	ChainTypeLocal    ChainType = "local"
)

// Valid reports whether t is a known chain type.
func (t ChainType) Valid() bool {
	switch t {
	case ChainTypeNational, ChainTypeRegional, ChainTypeLocal:
		return true
	}
	return false
}

// Store is a retail location in the directory.
//
// Invariants:
//   - Name is non-empty
//   - Type is one of the StoreType constants
//   - A physical store carries an address or coordinates (or both);
//     one with neither is invalid
//   - A store belongs to at most one chain (ChainID nil or set, never a list)
//
// The exact-match identity of a store is its external place ID when present,
// otherwise the DedupKey derived from its normalized name plus address
// (physical) or region (online/brand-direct). The persistence layer enforces
// uniqueness on both, which is the only write-ordering guarantee this core
// relies on.
type Store struct {
	ID         domain.StoreID  `json:"id"`
	Name       string          `json:"name"`
	Type       StoreType       `json:"type"`
	Address    string          `json:"address,omitempty"`
	City       string          `json:"city,omitempty"`
	State      string          `json:"state,omitempty"`
	PostalCode string          `json:"postal_code,omitempty"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
	PlaceID    string          `json:"place_id,omitempty"`
	ChainID    *domain.ChainID `json:"chain_id,omitempty"`
	Region     string          `json:"region,omitempty"`
	Website    string          `json:"website,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// StoreInput is a candidate store as submitted by a contribution flow.
type StoreInput struct {
	Name       string          `json:"name"`
	Type       StoreType       `json:"type"`
	Address    string          `json:"address,omitempty"`
	City       string          `json:"city,omitempty"`
	State      string          `json:"state,omitempty"`
	PostalCode string          `json:"postal_code,omitempty"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
	PlaceID    string          `json:"place_id,omitempty"`
	ChainID    *domain.ChainID `json:"chain_id,omitempty"`
	Region     string          `json:"region,omitempty"`
	Website    string          `json:"website,omitempty"`
}

// Validate checks the candidate's invariants for its type.
func (in StoreInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "store name is required")
	}
	if !in.Type.Valid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown store type %q", in.Type))
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return dErrors.New(dErrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if in.Type.Physical() && strings.TrimSpace(in.Address) == "" && in.Latitude == nil {
		return dErrors.New(dErrors.CodeValidation, "a physical store needs an address or coordinates")
	}
	return nil
}

// NewStore constructs a validated Store from a candidate input.
func NewStore(in StoreInput, now time.Time) (*Store, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		ID:         domain.NewStoreID(),
		Name:       strings.TrimSpace(in.Name),
		Type:       in.Type,
		Address:    strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		PlaceID:    strings.TrimSpace(in.PlaceID),
		ChainID:    in.ChainID,
		Region:     strings.TrimSpace(in.Region),
		Website:    strings.TrimSpace(in.Website),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HasCoordinates reports whether the store carries a usable coordinate pair.
func (s *Store) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Point returns the store's coordinates, or nil when absent.
func (s *Store) Point() *geo.Point {
	if !s.HasCoordinates() {
		return nil
	}
	return &geo.Point{Lat: *s.Latitude, Lon: *s.Longitude}
}

// DedupKey derives the exact-match uniqueness key for the store. Physical
// stores key on normalized name + normalized address (falling back to rounded
// coordinates when the address is absent); online and brand-direct stores key
// on normalized name + region scope.
func (s *Store) DedupKey() string {
	return DedupKeyFor(s.Type, s.Name, s.Address, s.Region, s.Latitude, s.Longitude)
}

// DedupKeyFor derives the uniqueness key from candidate fields, so inputs can
// be keyed before a Store exists.
func DedupKeyFor(t StoreType, name, address, region string, lat, lon *float64) string {
	if t.Physical() {
		loc := NormalizeAddress(address)
		if loc == "" && lat != nil && lon != nil {
			loc = fmt.Sprintf("%.5f,%.5f", *lat, *lon)
		}
		return "p|" + NormalizeName(name) + "|" + loc
	}
	return "o|" + NormalizeName(name) + "|" + strings.ToLower(strings.TrimSpace(region))
}

// NormalizeName lowercases, strips punctuation to spaces, and collapses
// whitespace so cosmetic differences don't defeat exact matching.
func NormalizeName(s string) string {
	return normalizeText(s)
}

// NormalizeAddress applies the same folding as NormalizeName plus common
// street-suffix abbreviation so "1 Main Street" and "1 Main St." compare
// equal.
func NormalizeAddress(s string) string {
	norm := normalizeText(s)
	if norm == "" {
		return ""
	}
	words := strings.Fields(norm)
	for i, w := range words {
		if abbrev, ok := streetAbbreviations[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}

// NameTokens returns the normalized name split into tokens.
func NameTokens(name string) []string {
	norm := NormalizeName(name)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

var streetAbbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"av":        "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"road":      "rd",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"highway":   "hwy",
	"parkway":   "pkwy",
	"suite":     "ste",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StoreChain is a named retail company format. Its company key is derived on
// read (never stored) so grouping stays consistent after renames.
type StoreChain struct {
	ID        domain.ChainID `json:"id"`
	Name      string         `json:"name"`
	Type      ChainType      `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewStoreChain constructs a validated StoreChain.
func NewStoreChain(name string, chainType ChainType, now time.Time) (*StoreChain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "chain name is required")
	}
	if !chainType.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown chain type %q", chainType))
	}
	return &StoreChain{
		ID:        domain.NewChainID(),
		Name:      name,
		Type:      chainType,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename updates the display name. Company-key grouping follows automatically
// because the key is recomputed from Name on every read.
func (c *StoreChain) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "chain name is required")
	}
	c.Name = name
	c.UpdatedAt = now
	return nil
}
