package domain

import "token-indexer-sol/internal/logic/core"

// TokenEvent 作用于 mint 的事件
type TokenEvent interface {
	Event
	TokenID() TokenID
	// Invert 增发 ↔ 减少；初始化与元数据事件返回自身。reversed 标记保持不变
	Invert() TokenEvent
	WithReversed(reversed bool) TokenEvent
	isTokenEvent()
}

type TokenInitializeEvent struct {
	Mint            TokenID     `json:"mint"`
	MintAuthority   string      `json:"mintAuthority"`
	FreezeAuthority string      `json:"freezeAuthority,omitempty"`
	Decimals        uint8       `json:"decimals"`
	Reversed        bool        `json:"reversed"`
	LogRef          core.LogRef `json:"log"`
}

type TokenSupplyIncreaseEvent struct {
	Mint     TokenID     `json:"mint"`
	Amount   uint64      `json:"amount"`
	Reversed bool        `json:"reversed"`
	LogRef   core.LogRef `json:"log"`
}

type TokenSupplyDecreaseEvent struct {
	Mint     TokenID     `json:"mint"`
	Amount   uint64      `json:"amount"`
	Reversed bool        `json:"reversed"`
	LogRef   core.LogRef `json:"log"`
}

type TokenMetadataEvent struct {
	Mint     TokenID       `json:"mint"`
	Metadata TokenMetadata `json:"metadata"`
	Reversed bool          `json:"reversed"`
	LogRef   core.LogRef   `json:"log"`
}

func (e TokenInitializeEvent) Log() core.LogRef   { return e.LogRef }
func (e TokenInitializeEvent) IsReversed() bool   { return e.Reversed }
func (e TokenInitializeEvent) Type() string       { return TypeTokenInitialize }
func (e TokenInitializeEvent) TokenID() TokenID   { return e.Mint }
func (e TokenInitializeEvent) Invert() TokenEvent { return e }
func (e TokenInitializeEvent) WithReversed(reversed bool) TokenEvent {
	e.Reversed = reversed
	return e
}

func (e TokenSupplyIncreaseEvent) Log() core.LogRef { return e.LogRef }
func (e TokenSupplyIncreaseEvent) IsReversed() bool { return e.Reversed }
func (e TokenSupplyIncreaseEvent) Type() string     { return TypeTokenSupplyIncrease }
func (e TokenSupplyIncreaseEvent) TokenID() TokenID { return e.Mint }
func (e TokenSupplyIncreaseEvent) Invert() TokenEvent {
	return TokenSupplyDecreaseEvent{Mint: e.Mint, Amount: e.Amount, Reversed: e.Reversed, LogRef: e.LogRef}
}
func (e TokenSupplyIncreaseEvent) WithReversed(reversed bool) TokenEvent {
	e.Reversed = reversed
	return e
}

func (e TokenSupplyDecreaseEvent) Log() core.LogRef { return e.LogRef }
func (e TokenSupplyDecreaseEvent) IsReversed() bool { return e.Reversed }
func (e TokenSupplyDecreaseEvent) Type() string     { return TypeTokenSupplyDecrease }
func (e TokenSupplyDecreaseEvent) TokenID() TokenID { return e.Mint }
func (e TokenSupplyDecreaseEvent) Invert() TokenEvent {
	return TokenSupplyIncreaseEvent{Mint: e.Mint, Amount: e.Amount, Reversed: e.Reversed, LogRef: e.LogRef}
}
func (e TokenSupplyDecreaseEvent) WithReversed(reversed bool) TokenEvent {
	e.Reversed = reversed
	return e
}

func (e TokenMetadataEvent) Log() core.LogRef   { return e.LogRef }
func (e TokenMetadataEvent) IsReversed() bool   { return e.Reversed }
func (e TokenMetadataEvent) Type() string       { return TypeTokenMetadata }
func (e TokenMetadataEvent) TokenID() TokenID   { return e.Mint }
func (e TokenMetadataEvent) Invert() TokenEvent { return e }
func (e TokenMetadataEvent) WithReversed(reversed bool) TokenEvent {
	e.Reversed = reversed
	return e
}

func (TokenInitializeEvent) isTokenEvent()     {}
func (TokenSupplyIncreaseEvent) isTokenEvent() {}
func (TokenSupplyDecreaseEvent) isTokenEvent() {}
func (TokenMetadataEvent) isTokenEvent()       {}
