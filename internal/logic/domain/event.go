package domain

import "token-indexer-sol/internal/logic/core"

// 事件类型判别符，序列化时写入 envelope.type
const (
	TypeBalanceInitialize   = "BALANCE_INITIALIZE"
	TypeBalanceIncome       = "BALANCE_INCOME"
	TypeBalanceOutcome      = "BALANCE_OUTCOME"
	TypeTokenInitialize     = "TOKEN_INITIALIZE"
	TypeTokenSupplyIncrease = "TOKEN_SUPPLY_INCREASE"
	TypeTokenSupplyDecrease = "TOKEN_SUPPLY_DECREASE"
	TypeTokenMetadata       = "TOKEN_METADATA"
)

type BalanceID string

type TokenID string

func (id BalanceID) String() string { return string(id) }
func (id TokenID) String() string   { return string(id) }

// Event 所有可回滚领域事件的公共部分
type Event interface {
	Log() core.LogRef
	IsReversed() bool
	Type() string
}
