// Package audiotest holds the behavior every audio.Store must satisfy.
package audiotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/doctech/internal/audio"
)

// RunStoreContract exercises store against the audio.Store contract.
func RunStoreContract(t *testing.T, store audio.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		id, err := store.Put(ctx, audio.Clip{Data: []byte("ID3-one"), ContentType: "audio/mpeg"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		clip, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("ID3-one"), clip.Data)
		assert.Equal(t, "audio/mpeg", clip.ContentType)
	})

	t.Run("ids are unique", func(t *testing.T) {
		first, err := store.Put(ctx, audio.Clip{Data: []byte("a"), ContentType: "audio/wav"})
		require.NoError(t, err)
		second, err := store.Put(ctx, audio.Clip{Data: []byte("b"), ContentType: "audio/wav"})
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		clip, err := store.Get(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), clip.Data)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, audio.ErrNotFound)
	})
}
