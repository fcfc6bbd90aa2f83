package ports

import (
	"context"
	"testing"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConfigStoreContract runs a suite of tests to verify that a ConfigStore
// implementation adheres to the defined interface contract.
// The store must be empty when passed in.
func RunConfigStoreContract(t *testing.T, store ConfigStore) {
	ctx := context.Background()

	t.Run("Load Empty", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		target := "%7"
		cfg := domain.ActiveConfig{ActiveTransport: domain.KindTmux, LastTargetID: &target}

		require.NoError(t, store.Save(ctx, cfg), "Save should not return error")

		loaded, err := store.Load(ctx)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.KindTmux, loaded.ActiveTransport)
		require.NotNil(t, loaded.LastTargetID)
		assert.Equal(t, "%7", *loaded.LastTargetID)
	})

	t.Run("Overwrite With Nil Target", func(t *testing.T) {
		cfg := domain.ActiveConfig{ActiveTransport: domain.KindClipboard}
		require.NoError(t, store.Save(ctx, cfg))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.KindClipboard, loaded.ActiveTransport)
		assert.Nil(t, loaded.LastTargetID)
	})

	t.Run("Isolation", func(t *testing.T) {
		target := "agent-1"
		cfg := domain.ActiveConfig{ActiveTransport: domain.KindMCP, LastTargetID: &target}
		require.NoError(t, store.Save(ctx, cfg))

		// Mutating the caller's copy must not leak into the store.
		target = "mutated"

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded.LastTargetID)
		assert.Equal(t, "agent-1", *loaded.LastTargetID)
	})
}
