package audio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/audio/audiotest"
)

func TestMemoryStore_Contract(t *testing.T) {
	audiotest.RunStoreContract(t, audio.NewMemoryStore(time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := audio.NewMemoryStore(20 * time.Millisecond)
	id, err := store.Put(context.Background(), audio.Clip{Data: []byte("x")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), id)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, audio.ErrNotFound)
}
