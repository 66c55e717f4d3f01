package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpantry/internal/directory/models"
)

func mustStore(t *testing.T, in models.StoreInput) *models.Store {
	t.Helper()
	st, err := models.NewStore(in, time.Now())
	require.NoError(t, err)
	return st
}

func physicalInput(name, address, city, state string) models.StoreInput {
	return models.StoreInput{
		Name:    name,
		Type:    models.StoreTypePhysical,
		Address: address,
		City:    city,
		State:   state,
	}
}

func TestClassifyExact(t *testing.T) {
	t.Run("place id match wins regardless of fields", func(t *testing.T) {
		existing := mustStore(t, models.StoreInput{
			Name: "Green Grocer", Type: models.StoreTypePhysical,
			Address: "100 Oak St", City: "Austin", PlaceID: "plc-1",
		})
		in := models.StoreInput{
			Name: "Totally Different Name", Type: models.StoreTypeOnlineRetailer,
			PlaceID: "plc-1",
		}
		res := Classify(in, []*models.Store{existing})
		assert.Equal(t, Exact, res.Classification)
		assert.Equal(t, existing.ID, res.Match.ID)
	})

	t.Run("normalized name and address match", func(t *testing.T) {
		existing := mustStore(t, physicalInput("Green Grocer", "100 Oak Street", "Austin", "TX"))
		in := physicalInput("GREEN  GROCER!", "100 Oak St.", "Austin", "TX")
		res := Classify(in, []*models.Store{existing})
		assert.Equal(t, Exact, res.Classification)
	})

	t.Run("online store matches on name and region", func(t *testing.T) {
		existing := mustStore(t, models.StoreInput{
			Name: "VitaShip", Type: models.StoreTypeOnlineRetailer, Region: "US",
		})
		in := models.StoreInput{
			Name: "vitaship", Type: models.StoreTypeOnlineRetailer, Region: "us",
		}
		res := Classify(in, []*models.Store{existing})
		assert.Equal(t, Exact, res.Classification)
	})

	t.Run("same key different type is not exact", func(t *testing.T) {
		existing := mustStore(t, models.StoreInput{
			Name: "VitaShip", Type: models.StoreTypeOnlineRetailer, Region: "US",
		})
		in := models.StoreInput{
			Name: "VitaShip", Type: models.StoreTypeBrandDirect, Region: "US",
		}
		res := Classify(in, []*models.Store{existing})
		assert.NotEqual(t, Exact, res.Classification)
	})
}

func TestClassifySimilar(t *testing.T) {
	t.Run("same name different address in same city", func(t *testing.T) {
		existing := mustStore(t, physicalInput("Green Grocer", "100 Oak St", "Austin", "TX"))
		in := physicalInput("Green Grocer", "200 Elm St", "Austin", "TX")
		res := Classify(in, []*models.Store{existing})
		require.Equal(t, Similar, res.Classification)
		require.Len(t, res.Candidates, 1)
		assert.InDelta(t, 1.0, res.Candidates[0].Score, 1e-9)
	})

	t.Run("misspelled name in same city", func(t *testing.T) {
		existing := mustStore(t, physicalInput("Green Grocer", "100 Oak St", "Austin", "TX"))
		in := physicalInput("Green Groccer", "100 Oak St", "Austin", "TX")
		res := Classify(in, []*models.Store{existing})
		assert.Equal(t, Similar, res.Classification)
	})

	t.Run("same name different state scores 0.7", func(t *testing.T) {
		existing := mustStore(t, physicalInput("Green Grocer", "100 Oak St", "Austin", "TX"))
		in := physicalInput("Green Grocer", "500 Pine St", "Portland", "OR")
		res := Classify(in, []*models.Store{existing})
		require.Equal(t, Similar, res.Classification)
		assert.InDelta(t, 0.7, res.Candidates[0].Score, 1e-9)
	})

	t.Run("candidates are ranked by score descending", func(t *testing.T) {
		sameCity := mustStore(t, physicalInput("Green Grocer", "200 Elm St", "Austin", "TX"))
		sameState := mustStore(t, physicalInput("Green Grocer", "900 Congress Ave", "Dallas", "TX"))
		in := physicalInput("Green Grocer", "100 Oak St", "Austin", "TX")

		res := Classify(in, []*models.Store{sameState, sameCity})
		require.Equal(t, Similar, res.Classification)
		require.Len(t, res.Candidates, 2)
		assert.Equal(t, sameCity.ID, res.Candidates[0].Store.ID)
		assert.Greater(t, res.Candidates[0].Score, res.Candidates[1].Score)
	})

	t.Run("candidate list is capped", func(t *testing.T) {
		var existing []*models.Store
		streets := []string{"1st", "2nd", "3rd", "4th", "5th", "6th", "7th"}
		for _, st := range streets {
			existing = append(existing, mustStore(t, physicalInput("Green Grocer", st+" St", "Austin", "TX")))
		}
		res := Classify(physicalInput("Green Grocer", "Main St", "Austin", "TX"), existing)
		require.Equal(t, Similar, res.Classification)
		assert.Len(t, res.Candidates, maxCandidates)
	})
}

func TestClassifyNone(t *testing.T) {
	t.Run("unrelated store", func(t *testing.T) {
		existing := mustStore(t, physicalInput("Green Grocer", "100 Oak St", "Austin", "TX"))
		in := physicalInput("Pet Palace", "700 Lamar Blvd", "Seattle", "WA")
		res := Classify(in, []*models.Store{existing})
		assert.Equal(t, None, res.Classification)
		assert.Empty(t, res.Candidates)
	})

	t.Run("no existing stores", func(t *testing.T) {
		res := Classify(physicalInput("Green Grocer", "100 Oak St", "Austin", "TX"), nil)
		assert.Equal(t, None, res.Classification)
	})
}

func TestScoreBoundary(t *testing.T) {
	// Weak token overlap plus state-only location lands just under the
	// threshold; same name plus state-only lands above it. These pin the
	// boundary so threshold drift is caught.
	existing := mustStore(t, physicalInput("Green Grocer Fresh Produce", "100 Oak St", "Austin", "TX"))

	t.Run("below threshold stays None", func(t *testing.T) {
		// One of four tokens overlaps: name 0.25, state 0.5 → 0.175+0.15=0.325.
		in := physicalInput("Grocer Supply Depot Warehouse", "1 Dock Rd", "Dallas", "TX")
		score := Score(in, existing)
		assert.Less(t, score, SimilarityThreshold)
		res := Classify(in, []*models.Store{existing})
		assert.Equal(t, None, res.Classification)
	})

	t.Run("at threshold is Similar", func(t *testing.T) {
		// Containment name score 1.0 with no location overlap: 0.7 ≥ 0.55.
		in := physicalInput("Green Grocer Fresh Produce", "9 Bay St", "Portland", "OR")
		score := Score(in, existing)
		assert.GreaterOrEqual(t, score, SimilarityThreshold)
		res := Classify(in, []*models.Store{existing})
		assert.NotEqual(t, None, res.Classification)
	})

	t.Run("just below threshold stays None", func(t *testing.T) {
		// Three of four tokens overlap with no location match:
		// 0.7*(3/4) = 0.525 < 0.55.
		anchor := mustStore(t, physicalInput("Golden Valley Fresh Produce", "4 Mill Rd", "Austin", "TX"))
		in := physicalInput("Golden Valley Fresh Cellar", "9 Bay St", "Portland", "OR")
		score := Score(in, anchor)
		assert.InDelta(t, 0.525, score, 1e-9)
		assert.Less(t, score, SimilarityThreshold)
		res := Classify(in, []*models.Store{anchor})
		assert.Equal(t, None, res.Classification)
	})

	t.Run("just above threshold is Similar", func(t *testing.T) {
		// Four of five tokens overlap with no location match:
		// 0.7*(4/5) = 0.56 ≥ 0.55.
		anchor := mustStore(t, physicalInput("Golden Valley Fresh Produce Depot", "4 Mill Rd", "Austin", "TX"))
		in := physicalInput("Golden Valley Fresh Produce Cellar", "9 Bay St", "Portland", "OR")
		score := Score(in, anchor)
		assert.InDelta(t, 0.56, score, 1e-9)
		assert.GreaterOrEqual(t, score, SimilarityThreshold)
		res := Classify(in, []*models.Store{anchor})
		require.Equal(t, Similar, res.Classification)
	})
}

func TestNameScore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{name: "identical", a: "Green Grocer", b: "Green Grocer", expected: 1},
		{name: "containment", a: "Green Grocer", b: "Green Grocer Downtown", expected: 1},
		{name: "disjoint", a: "Green Grocer", b: "Pet Palace", expected: 0},
		{name: "half overlap", a: "Green Grocer", b: "Green Valley", expected: 0.5},
		{name: "fuzzy token", a: "Green Grocer", b: "Green Groccer", expected: 0.9},
		{name: "empty", a: "", b: "Green Grocer", expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, nameScore(tt.a, tt.b), 1e-9)
		})
	}
}
