package segments_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/segments"
	"pulse/internal/testsupport"
)

func TestStore(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	store := segments.NewStore(db)
	ctx := context.Background()

	websiteID := uuid.New()
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	cohort := &segments.Segment{
		WebsiteID: websiteID,
		Type:      segments.TypeCohort,
		Name:      "Pricing visitors",
		Parameters: segments.Parameters{
			Filters:   []segments.Filter{{Name: "country", Operator: "eq", Value: "ES"}},
			StartDate: &start,
			Action:    &segments.Action{Type: "path", Value: "/pricing"},
		},
	}
	require.NoError(t, store.Create(ctx, cohort))
	assert.NotEqual(t, uuid.Nil, cohort.ID)

	t.Run("get by website and id", func(t *testing.T) {
		got, err := store.Get(ctx, websiteID, cohort.ID)
		require.NoError(t, err)
		assert.Equal(t, segments.TypeCohort, got.Type)
		assert.Equal(t, "Pricing visitors", got.Name)
		require.Len(t, got.Parameters.Filters, 1)
		assert.Equal(t, "ES", got.Parameters.Filters[0].Value)
		require.NotNil(t, got.Parameters.Action)
		assert.Equal(t, "/pricing", got.Parameters.Action.Value)
		require.NotNil(t, got.Parameters.StartDate)
		assert.True(t, start.Equal(*got.Parameters.StartDate))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, websiteID, uuid.New())
		assert.ErrorIs(t, err, segments.ErrNotFound)
	})

	t.Run("other website", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New(), cohort.ID)
		assert.ErrorIs(t, err, segments.ErrNotFound)
	})
}
