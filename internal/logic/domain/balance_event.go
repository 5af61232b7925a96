package domain

import "token-indexer-sol/internal/logic/core"

// BalanceEvent 作用于 token account 余额的事件
type BalanceEvent interface {
	Event
	BalanceID() BalanceID
	// Invert 收入 ↔ 支出；初始化事件返回自身。reversed 标记保持不变
	Invert() BalanceEvent
	WithReversed(reversed bool) BalanceEvent
	isBalanceEvent()
}

type BalanceInitializeEvent struct {
	Account  BalanceID   `json:"account"`
	Mint     string      `json:"mint"`
	Owner    string      `json:"owner"`
	Reversed bool        `json:"reversed"`
	LogRef   core.LogRef `json:"log"`
}

type BalanceIncomeEvent struct {
	Account  BalanceID   `json:"account"`
	Amount   uint64      `json:"amount"`
	Reversed bool        `json:"reversed"`
	LogRef   core.LogRef `json:"log"`
}

type BalanceOutcomeEvent struct {
	Account  BalanceID   `json:"account"`
	Amount   uint64      `json:"amount"`
	Reversed bool        `json:"reversed"`
	LogRef   core.LogRef `json:"log"`
}

func (e BalanceInitializeEvent) Log() core.LogRef     { return e.LogRef }
func (e BalanceInitializeEvent) IsReversed() bool     { return e.Reversed }
func (e BalanceInitializeEvent) Type() string         { return TypeBalanceInitialize }
func (e BalanceInitializeEvent) BalanceID() BalanceID { return e.Account }
func (e BalanceInitializeEvent) Invert() BalanceEvent { return e }
func (e BalanceInitializeEvent) WithReversed(reversed bool) BalanceEvent {
	e.Reversed = reversed
	return e
}

func (e BalanceIncomeEvent) Log() core.LogRef     { return e.LogRef }
func (e BalanceIncomeEvent) IsReversed() bool     { return e.Reversed }
func (e BalanceIncomeEvent) Type() string         { return TypeBalanceIncome }
func (e BalanceIncomeEvent) BalanceID() BalanceID { return e.Account }
func (e BalanceIncomeEvent) Invert() BalanceEvent {
	return BalanceOutcomeEvent{Account: e.Account, Amount: e.Amount, Reversed: e.Reversed, LogRef: e.LogRef}
}
func (e BalanceIncomeEvent) WithReversed(reversed bool) BalanceEvent {
	e.Reversed = reversed
	return e
}

func (e BalanceOutcomeEvent) Log() core.LogRef     { return e.LogRef }
func (e BalanceOutcomeEvent) IsReversed() bool     { return e.Reversed }
func (e BalanceOutcomeEvent) Type() string         { return TypeBalanceOutcome }
func (e BalanceOutcomeEvent) BalanceID() BalanceID { return e.Account }
func (e BalanceOutcomeEvent) Invert() BalanceEvent {
	return BalanceIncomeEvent{Account: e.Account, Amount: e.Amount, Reversed: e.Reversed, LogRef: e.LogRef}
}
func (e BalanceOutcomeEvent) WithReversed(reversed bool) BalanceEvent {
	e.Reversed = reversed
	return e
}

func (BalanceInitializeEvent) isBalanceEvent() {}
func (BalanceIncomeEvent) isBalanceEvent()     {}
func (BalanceOutcomeEvent) isBalanceEvent()    {}
