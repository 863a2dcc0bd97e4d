package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

// testStoreContract runs the behaviour every backend must share. It uses a
// fresh profile so it can run against a shared database.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	profile := "contract-" + uuid.NewString()

	a := &model.Fact{ProfileID: profile, Content: "Nicky mains Ghostface", Confidence: 80}
	b := &model.Fact{ProfileID: profile, Content: "Nicky mains Hillbilly", Confidence: 75}
	c := &model.Fact{ProfileID: profile, Content: "Nicky grew up in Newark", Confidence: 60, Importance: 4}
	for _, f := range []*model.Fact{a, b, c} {
		require.NoError(t, s.InsertFact(ctx, f))
	}

	active, err := s.ListActiveFacts(ctx, profile, 10)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	require.NoError(t, s.ResolveGroup(ctx, []string{a.ID, b.ID}, "group-"+profile, a.ID))

	active, err = s.ListActiveFacts(ctx, profile, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, c.ID, active[0].ID)

	got, err := s.GetFact(ctx, profile, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAmbiguous, got.Status)
	require.NotNil(t, got.ContradictionGroupID)
	assert.Equal(t, "group-"+profile, *got.ContradictionGroupID)

	got, err = s.GetFact(ctx, profile, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)

	all, err := s.ListFacts(ctx, profile, FactFilter{Status: model.StatusActive})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, c.ID, all[0].ID)

	_, err = s.GetFact(ctx, "other-"+profile, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
