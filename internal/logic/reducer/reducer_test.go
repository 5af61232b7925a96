package reducer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/domain"
)

func TestBalanceReducer(t *testing.T) {
	r := BalanceReducer{}
	b := domain.EmptyBalance("acc")

	b = r.Reduce(b, domain.BalanceInitializeEvent{Account: "acc", Mint: "mint", Owner: "owner"})
	assert.Equal(t, "mint", b.Mint)
	assert.Equal(t, "owner", b.Owner)
	assert.Zero(t, b.Value)

	b = r.Reduce(b, domain.BalanceIncomeEvent{Account: "acc", Amount: 10})
	b = r.Reduce(b, domain.BalanceOutcomeEvent{Account: "acc", Amount: 25})
	assert.Equal(t, int64(-15), b.Value)
	assert.Empty(t, b.RevertableEvents)
}

func TestBalanceReducer_InverseCancels(t *testing.T) {
	r := BalanceReducer{}
	start := domain.Balance{Account: "acc", Value: 42}
	e := domain.BalanceIncomeEvent{Account: "acc", Amount: 7, LogRef: core.LogRef{Slot: 1}}

	got := r.Reduce(r.Reduce(start, e), e.Invert())
	assert.Equal(t, start, got)
}

func TestTokenReducer(t *testing.T) {
	r := TokenReducer{}
	tok := domain.EmptyToken("mint")

	tok = r.Reduce(tok, domain.TokenInitializeEvent{Mint: "mint", MintAuthority: "auth", Decimals: 6})
	tok = r.Reduce(tok, domain.TokenSupplyIncreaseEvent{Mint: "mint", Amount: 1000})
	tok = r.Reduce(tok, domain.TokenSupplyDecreaseEvent{Mint: "mint", Amount: 1})
	tok = r.Reduce(tok, domain.TokenMetadataEvent{Mint: "mint", Metadata: domain.TokenMetadata{Name: "Coin"}})

	assert.Equal(t, "auth", tok.MintAuthority)
	assert.Equal(t, uint8(6), tok.Decimals)
	assert.Equal(t, int64(999), tok.Supply)
	if assert.NotNil(t, tok.Metadata) {
		assert.Equal(t, "Coin", tok.Metadata.Name)
	}
}

func TestReducer_AmountSaturates(t *testing.T) {
	br := BalanceReducer{}
	b := br.Reduce(domain.EmptyBalance("acc"), domain.BalanceIncomeEvent{Account: "acc", Amount: math.MaxUint64})
	assert.Equal(t, int64(math.MaxInt64), b.Value)
	b = br.Reduce(b, domain.BalanceIncomeEvent{Account: "acc", Amount: 1})
	assert.Equal(t, int64(math.MaxInt64), b.Value)

	b = br.Reduce(domain.EmptyBalance("acc"), domain.BalanceOutcomeEvent{Account: "acc", Amount: math.MaxUint64})
	assert.Equal(t, int64(math.MinInt64), b.Value)

	tr := TokenReducer{}
	tok := tr.Reduce(domain.EmptyToken("mint"), domain.TokenSupplyIncreaseEvent{Mint: "mint", Amount: math.MaxUint64})
	assert.Equal(t, int64(math.MaxInt64), tok.Supply)
	tok = tr.Reduce(tok, domain.TokenSupplyDecreaseEvent{Mint: "mint", Amount: 1})
	assert.Equal(t, int64(math.MaxInt64-1), tok.Supply)
}

func TestAmountArithmetic(t *testing.T) {
	cases := []struct {
		name   string
		v      int64
		amount uint64
		add    int64
		sub    int64
	}{
		{"zero", 0, 0, 0, 0},
		{"small", 5, 3, 8, 2},
		{"negative base", -10, 4, -6, -14},
		{"cross zero", -3, 10, 7, -13},
		{"above max int64", 0, math.MaxInt64 + 1, math.MaxInt64, math.MinInt64},
		{"negative absorbs large", math.MinInt64, math.MaxUint64, math.MaxInt64, math.MinInt64},
		{"positive absorbs large", math.MaxInt64, math.MaxUint64, math.MaxInt64, math.MinInt64},
		{"positive minus huge", math.MaxInt64, math.MaxInt64 + 1, math.MaxInt64, -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.add, addAmount(c.v, c.amount))
			assert.Equal(t, c.sub, subAmount(c.v, c.amount))
		})
	}
}
