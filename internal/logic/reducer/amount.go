package reducer

import "math"

// 链上数量为 u64，余额与供应量为 i64。结果越界时停在边界值，不回绕

func addAmount(v int64, amount uint64) int64 {
	if v < 0 {
		abs := uint64(-(v + 1)) + 1
		if amount < abs {
			return v + int64(amount)
		}
		amount -= abs
		v = 0
	}
	if amount > uint64(math.MaxInt64-v) {
		return math.MaxInt64
	}
	return v + int64(amount)
}

func subAmount(v int64, amount uint64) int64 {
	if v > 0 {
		if amount <= uint64(v) {
			return v - int64(amount)
		}
		amount -= uint64(v)
		v = 0
	}
	// v <= 0，剩余空间为 v - MinInt64
	room := uint64(v) + 1<<63
	if amount >= room {
		return math.MinInt64
	}
	return v - int64(amount)
}
