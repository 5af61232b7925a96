package feed

import (
	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/types"
)

// Instruction 表示一条主指令或 inner 指令（已展平）
type Instruction struct {
	ProgramID types.Pubkey   // 指令对应的程序 ID
	Accounts  []types.Pubkey // 指令涉及的账户列表，保持原始顺序
	Data      []byte         // 指令原始数据
}

// TokenMints 交易内 token account → mint 映射，来源于 pre/post token balances。
// 同一交易的所有 LogEntry 共享一个实例，只读。
type TokenMints map[types.Pubkey]types.Pubkey

// LogEntry 一条待匹配的指令及其出处
type LogEntry struct {
	Log         core.LogRef
	Instruction Instruction
	TokenMints  TokenMints
}

// Block 按链上执行顺序排列的指令序列
type Block struct {
	Slot       uint64
	ParentSlot uint64
	BlockHash  string
	ParentHash string
	BlockTime  int64 // Unix 秒
	Height     uint64
	Entries    []*LogEntry
}

// MintOf 查询 token account 对应的 mint
func (m TokenMints) MintOf(account types.Pubkey) (types.Pubkey, bool) {
	mint, ok := m[account]
	return mint, ok
}
