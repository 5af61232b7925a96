package txadapter

import (
	"fmt"

	"token-indexer-sol/internal/types"
)

// buildFullAccountKeys 拼接 message.accountKeys 与 Address Lookup Table 中的 writable / readonly 地址，
// 顺序与链上 accountIndex 一致
func buildFullAccountKeys(accountKeys, loadedWritable, loadedReadonly [][]byte) ([]types.Pubkey, error) {
	total := len(accountKeys) + len(loadedWritable) + len(loadedReadonly)
	pubkeys := make([]types.Pubkey, 0, total)

	for _, part := range []struct {
		name string
		keys [][]byte
	}{
		{"accountKeys", accountKeys},
		{"loadedWritable", loadedWritable},
		{"loadedReadonly", loadedReadonly},
	} {
		for i, b := range part.keys {
			pk, err := types.PubkeyFromBytes(b)
			if err != nil {
				return nil, fmt.Errorf("invalid pubkey in %s at index %d: %w", part.name, i, err)
			}
			pubkeys = append(pubkeys, pk)
		}
	}
	return pubkeys, nil
}

// resolveAccounts 将账户索引列表反解为 Pubkey
func resolveAccounts(indexes []byte, accountKeys []types.Pubkey) ([]types.Pubkey, error) {
	accounts := make([]types.Pubkey, 0, len(indexes))
	for _, idx := range indexes {
		if int(idx) >= len(accountKeys) {
			return nil, fmt.Errorf("account index %d out of range (%d keys)", idx, len(accountKeys))
		}
		accounts = append(accounts, accountKeys[idx])
	}
	return accounts, nil
}
