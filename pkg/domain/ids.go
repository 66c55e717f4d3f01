// Package domain defines the typed identifiers shared across modules.
//
// Wrapping uuid.UUID in distinct named types keeps store IDs and chain IDs
// from being swapped at call sites; conversion is always explicit.
package domain

import "github.com/google/uuid"

// StoreID identifies a retail location (physical, online, or brand-direct).
type StoreID uuid.UUID

// ChainID identifies a retail chain (a named company format variant).
type ChainID uuid.UUID

// NewStoreID returns a random StoreID.
func NewStoreID() StoreID { return StoreID(uuid.New()) }

// NewChainID returns a random ChainID.
func NewChainID() ChainID { return ChainID(uuid.New()) }

// ParseStoreID parses a canonical UUID string into a StoreID.
func ParseStoreID(s string) (StoreID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return StoreID{}, err
	}
	return StoreID(u), nil
}

// ParseChainID parses a canonical UUID string into a ChainID.
func ParseChainID(s string) (ChainID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ChainID{}, err
	}
	return ChainID(u), nil
}

func (id StoreID) String() string { return uuid.UUID(id).String() }
func (id ChainID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id StoreID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero UUID.
func (id ChainID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id StoreID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ChainID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *StoreID) UnmarshalText(b []byte) error {
	parsed, err := ParseStoreID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ChainID) UnmarshalText(b []byte) error {
	parsed, err := ParseChainID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
