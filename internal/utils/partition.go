package utils

import "github.com/cespare/xxhash/v2"

// PartitionHashString 字符串 id（base58 地址等）的分区选择，同一 id 永远落在同一分区
func PartitionHashString(s string, mod uint32) uint32 {
	if mod <= 1 {
		return 0
	}
	return uint32(xxhash.Sum64String(s) % uint64(mod))
}

// CalcCapPerPartition 根据总量和分区数，计算每个分区的预估初始容量，带一定冗余。
// 保底值由 minCap 保证，通常用于避免每个 bucket 初始容量太小。
func CalcCapPerPartition(total, partitions, minCap int) int {
	if partitions <= 1 {
		return max(total, minCap)
	}
	if partitions < 5 {
		return max(total/2, minCap)
	}
	return max(total*3/partitions, minCap)
}
