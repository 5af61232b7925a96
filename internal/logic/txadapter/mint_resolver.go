package txadapter

import "token-indexer-sol/internal/types"

type mintKV struct {
	base58 string
	pubkey types.Pubkey
}

// mintResolver 将 base58 mint 字符串解析为 Pubkey 并缓存。
// 单笔交易涉及的 mint 很少，线性查找即可；非法地址返回 false。
type mintResolver struct {
	cache []mintKV
}

func newMintResolver(capacity int) *mintResolver {
	return &mintResolver{cache: make([]mintKV, 0, capacity)}
}

func (r *mintResolver) resolve(mintStr string) (types.Pubkey, bool) {
	for _, item := range r.cache {
		if item.base58 == mintStr {
			return item.pubkey, true
		}
	}
	pk, err := types.TryPubkeyFromBase58(mintStr)
	if err != nil {
		return types.Pubkey{}, false
	}
	r.cache = append(r.cache, mintKV{base58: mintStr, pubkey: pk})
	return pk, true
}
