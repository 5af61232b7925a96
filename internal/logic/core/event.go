package core

// BuildEventID 构造 slot 内唯一的事件 ID（uint32），由 txIndex、ixIndex、innerIndex 组合而成：
//   - txIndex    (16 bits): 当前交易在区块中的序号，范围 0 ~ 65535
//   - ixIndex    (8 bits) : 主指令序号，范围 0 ~ 255
//   - innerIndex (8 bits) : inner 指令序号，主指令为 0，CPI 调用从 1 开始
//
// 编码结构：
//
//	[ 16 bits txIndex ] [ 8 bits ixIndex ] [ 8 bits innerIndex ]
func BuildEventID(txIndex uint32, ixIndex uint16, innerIndex uint16) uint32 {
	return (txIndex << 16) | (uint32(ixIndex&0xFF) << 8) | uint32(innerIndex&0xFF)
}
