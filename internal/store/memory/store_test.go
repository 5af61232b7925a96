package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/logic/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore[domain.BalanceID, domain.Balance]()

	_, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Save(ctx, domain.Balance{Account: "a", Value: 5})
	require.NoError(t, err)
	_, err = s.Save(ctx, domain.Balance{Account: "b", Value: 7})
	require.NoError(t, err)

	got, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(5), got.Value)
	assert.Equal(t, 2, s.Len())

	removed, err := s.RemoveAll(ctx, []domain.BalanceID{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, domain.BalanceID("a"), removed[0].Account)
	assert.Len(t, s.All(), 1)
}

func TestStoreSaveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStore[domain.TokenID, domain.Token]()
	_, err := s.Save(ctx, domain.Token{Mint: "m"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Len())
}
