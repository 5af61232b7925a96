package progress

import "token-indexer-sol/internal/logic/core"

// SlotStatus 表示 slot 的处理状态（Redis 与 DB 统一编码）
type SlotStatus int

const (
	SlotUnknown   SlotStatus = 0
	SlotProcessed SlotStatus = 1 // 事件已应用
	SlotReverted  SlotStatus = 2 // 分叉被丢弃，事件已回滚
)

func (s SlotStatus) String() string {
	switch s {
	case SlotProcessed:
		return "processed"
	case SlotReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// EntityKind 区分 journal 条目属于哪类实体
type EntityKind uint8

const (
	KindBalance EntityKind = 1
	KindToken   EntityKind = 2
)

func (k EntityKind) String() string {
	switch k {
	case KindBalance:
		return "balance"
	case KindToken:
		return "token"
	default:
		return "unknown"
	}
}

// Entry 某个 slot 在某实体上应用过的一个出处
type Entry struct {
	Kind EntityKind  `json:"kind"`
	ID   string      `json:"id"`
	Log  core.LogRef `json:"log"`
}

// SlotInfo 已处理区块的摘要，用于分叉检测
type SlotInfo struct {
	Slot       uint64 `json:"slot"`
	ParentSlot uint64 `json:"parentSlot"`
	BlockHash  string `json:"blockHash"`
	BlockTime  int64  `json:"blockTime"`
}

// SlotRecord 表示一条待写入 DB 的 slot 记录
type SlotRecord struct {
	Slot      uint64
	BlockHash string
	BlockTime int64
	Status    SlotStatus
}
