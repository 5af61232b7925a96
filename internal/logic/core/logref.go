package core

import (
	"cmp"
	"fmt"
	"strings"
)

// LogRef 标识一条链上指令的出处（provenance）。
// 同一条指令在同一区块内的 LogRef 完全相等；分叉后同一交易在不同区块中的 LogRef 不同（BlockHash 不同）。
type LogRef struct {
	Slot        uint64 `json:"slot"`
	BlockHash   string `json:"blockHash"`
	TxIndex     uint32 `json:"txIndex"`
	TxSignature string `json:"txSignature"`
	IxIndex     uint16 `json:"ixIndex"`
	InnerIndex  uint16 `json:"innerIndex"` // 主指令为 0，inner 指令从 1 开始
	ProgramID   string `json:"programId"`
}

// Compare 按 slot → txIndex → ixIndex → innerIndex 排序；
// 位置相同的记录再按签名、区块哈希、程序 ID 比较，保证 Compare == 0 当且仅当两者相等
func (l LogRef) Compare(o LogRef) int {
	if c := cmp.Compare(l.Slot, o.Slot); c != 0 {
		return c
	}
	if c := cmp.Compare(l.TxIndex, o.TxIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(l.IxIndex, o.IxIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(l.InnerIndex, o.InnerIndex); c != 0 {
		return c
	}
	if c := strings.Compare(l.TxSignature, o.TxSignature); c != 0 {
		return c
	}
	if c := strings.Compare(l.BlockHash, o.BlockHash); c != 0 {
		return c
	}
	return strings.Compare(l.ProgramID, o.ProgramID)
}

func (l LogRef) Less(o LogRef) bool {
	return l.Compare(o) < 0
}

// EventID 返回 slot 内的紧凑事件序号
func (l LogRef) EventID() uint32 {
	return BuildEventID(l.TxIndex, l.IxIndex, l.InnerIndex)
}

func (l LogRef) String() string {
	return fmt.Sprintf("%d/%s/%d:%d.%d", l.Slot, l.TxSignature, l.TxIndex, l.IxIndex, l.InnerIndex)
}
