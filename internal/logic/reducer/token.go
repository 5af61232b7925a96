package reducer

import "token-indexer-sol/internal/logic/domain"

type TokenReducer struct{}

func (TokenReducer) Reduce(t domain.Token, e domain.TokenEvent) domain.Token {
	switch ev := e.(type) {
	case domain.TokenInitializeEvent:
		t.MintAuthority = ev.MintAuthority
		t.FreezeAuthority = ev.FreezeAuthority
		t.Decimals = ev.Decimals
	case domain.TokenSupplyIncreaseEvent:
		t.Supply = addAmount(t.Supply, ev.Amount)
	case domain.TokenSupplyDecreaseEvent:
		t.Supply = subAmount(t.Supply, ev.Amount)
	case domain.TokenMetadataEvent:
		meta := ev.Metadata
		t.Metadata = &meta
	}
	return t
}
