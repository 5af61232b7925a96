package consts

import "runtime"

const (
	ChainIDSolana uint32 = 100000
)

// Kafka 消息事件类型（EncodeEvent 前缀）
const (
	EventTypeBalanceChange uint32 = 1
	EventTypeTokenChange   uint32 = 2
)

// CpuCount 表示逻辑 CPU 核心数，用于控制并发任务调度上限
var CpuCount = runtime.NumCPU()
