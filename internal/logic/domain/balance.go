package domain

// Balance token account 的物化余额。
// 不变量：Value == fold(reduce, EmptyBalance(Account), 未回滚的 RevertableEvents)
type Balance struct {
	Account          BalanceID
	Mint             string
	Owner            string
	Value            int64 // 允许为负（乱序或缺失历史时）
	RevertableEvents []BalanceEvent
}

func EmptyBalance(id BalanceID) Balance {
	return Balance{Account: id}
}

func (b Balance) EntityID() BalanceID {
	return b.Account
}

func (b Balance) Events() []BalanceEvent {
	return b.RevertableEvents
}

func (b Balance) WithEvents(events []BalanceEvent) Balance {
	b.RevertableEvents = events
	return b
}
