package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "plantpantry/pkg/domain-errors"
)

func f64(v float64) *float64 { return &v }

func TestStoreInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   StoreInput
		wantErr bool
	}{
		{
			name:  "valid physical with address",
			input: StoreInput{Name: "Green Grocer", Type: StoreTypePhysical, Address: "100 Oak St"},
		},
		{
			name:  "valid physical with coordinates only",
			input: StoreInput{Name: "Green Grocer", Type: StoreTypePhysical, Latitude: f64(30.1), Longitude: f64(-97.7)},
		},
		{
			name:  "valid online without address",
			input: StoreInput{Name: "VitaShip", Type: StoreTypeOnlineRetailer, Region: "US"},
		},
		{
			name:    "missing name",
			input:   StoreInput{Name: "  ", Type: StoreTypePhysical, Address: "100 Oak St"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			input:   StoreInput{Name: "Green Grocer", Type: StoreType("popup")},
			wantErr: true,
		},
		{
			name:    "physical with neither address nor coordinates",
			input:   StoreInput{Name: "Green Grocer", Type: StoreTypePhysical},
			wantErr: true,
		},
		{
			name:    "latitude without longitude",
			input:   StoreInput{Name: "Green Grocer", Type: StoreTypePhysical, Address: "100 Oak St", Latitude: f64(30.1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewStore(t *testing.T) {
	now := time.Now()
	st, err := NewStore(StoreInput{
		Name:    "  Green Grocer  ",
		Type:    StoreTypePhysical,
		Address: " 100 Oak St ",
		City:    "Austin",
	}, now)
	require.NoError(t, err)

	assert.False(t, st.ID.IsNil())
	assert.Equal(t, "Green Grocer", st.Name)
	assert.Equal(t, "100 Oak St", st.Address)
	assert.Equal(t, now, st.CreatedAt)
	assert.Equal(t, now, st.UpdatedAt)
}

func TestDedupKey(t *testing.T) {
	t.Run("physical keys on name and address", func(t *testing.T) {
		a := DedupKeyFor(StoreTypePhysical, "Green Grocer", "100 Oak Street", "", nil, nil)
		b := DedupKeyFor(StoreTypePhysical, "GREEN GROCER!", "100 Oak St.", "", nil, nil)
		assert.Equal(t, a, b)
	})

	t.Run("physical without address falls back to rounded coordinates", func(t *testing.T) {
		a := DedupKeyFor(StoreTypePhysical, "Green Grocer", "", "", f64(30.26721), f64(-97.74312))
		b := DedupKeyFor(StoreTypePhysical, "Green Grocer", "", "", f64(30.26721), f64(-97.74312))
		assert.Equal(t, a, b)
		c := DedupKeyFor(StoreTypePhysical, "Green Grocer", "", "", f64(31.0), f64(-97.74312))
		assert.NotEqual(t, a, c)
	})

	t.Run("online keys on name and region", func(t *testing.T) {
		a := DedupKeyFor(StoreTypeOnlineRetailer, "VitaShip", "", "US", nil, nil)
		b := DedupKeyFor(StoreTypeOnlineRetailer, "vitaship", "", " us ", nil, nil)
		assert.Equal(t, a, b)
	})

	t.Run("physical and online keys never collide", func(t *testing.T) {
		a := DedupKeyFor(StoreTypePhysical, "VitaShip", "", "", nil, nil)
		b := DedupKeyFor(StoreTypeOnlineRetailer, "VitaShip", "", "", nil, nil)
		assert.NotEqual(t, a, b)
	})
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "street suffix", input: "100 Oak Street", expected: "100 oak st"},
		{name: "already abbreviated", input: "100 Oak St.", expected: "100 oak st"},
		{name: "direction words", input: "200 North Lamar Boulevard", expected: "200 n lamar blvd"},
		{name: "suite", input: "300 Main St Suite 4", expected: "300 main st ste 4"},
		{name: "empty", input: "   ", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestNameTokens(t *testing.T) {
	assert.Equal(t, []string{"green", "grocer"}, NameTokens("  Green-Grocer!  "))
	assert.Nil(t, NameTokens(" ... "))
}

func TestStorePoint(t *testing.T) {
	st := &Store{Latitude: f64(30.1), Longitude: f64(-97.7)}
	require.True(t, st.HasCoordinates())
	p := st.Point()
	require.NotNil(t, p)
	assert.Equal(t, 30.1, p.Lat)

	assert.Nil(t, (&Store{Latitude: f64(30.1)}).Point())
}

func TestStoreChain(t *testing.T) {
	now := time.Now()

	t.Run("valid chain", func(t *testing.T) {
		c, err := NewStoreChain(" Kroger ", ChainTypeNational, now)
		require.NoError(t, err)
		assert.Equal(t, "Kroger", c.Name)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := NewStoreChain("  ", ChainTypeNational, now)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := NewStoreChain("Kroger", ChainType("global"), now)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})

	t.Run("rename updates name and timestamp", func(t *testing.T) {
		c, err := NewStoreChain("Safewy", ChainTypeRegional, now)
		require.NoError(t, err)
		later := now.Add(time.Hour)
		require.NoError(t, c.Rename("Safeway", later))
		assert.Equal(t, "Safeway", c.Name)
		assert.Equal(t, later, c.UpdatedAt)
	})
}
