package reducer

import "token-indexer-sol/internal/logic/domain"

// BalanceReducer 纯函数，不修改 RevertableEvents
type BalanceReducer struct{}

func (BalanceReducer) Reduce(b domain.Balance, e domain.BalanceEvent) domain.Balance {
	switch ev := e.(type) {
	case domain.BalanceInitializeEvent:
		b.Mint = ev.Mint
		b.Owner = ev.Owner
	case domain.BalanceIncomeEvent:
		b.Value = addAmount(b.Value, ev.Amount)
	case domain.BalanceOutcomeEvent:
		b.Value = subAmount(b.Value, ev.Amount)
	}
	return b
}
