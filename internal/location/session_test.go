package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpantry/pkg/platform/sentinel"
)

func TestMemorySessions(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessions()

	t.Run("missing choice is not found", func(t *testing.T) {
		_, err := sessions.LoadChoice(ctx, "sess-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		loc := UserLocation{City: "Austin", State: "TX", Label: "Austin, TX", Source: SourceManual}
		require.NoError(t, sessions.SaveChoice(ctx, "sess-1", loc))

		stored, err := sessions.LoadChoice(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, loc, *stored)
	})

	t.Run("keys are independent", func(t *testing.T) {
		_, err := sessions.LoadChoice(ctx, "sess-2")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("later save replaces the choice", func(t *testing.T) {
		require.NoError(t, sessions.SaveChoice(ctx, "sess-1",
			UserLocation{City: "Portland", State: "OR", Source: SourceManual}))
		stored, err := sessions.LoadChoice(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "Portland", stored.City)
	})
}
