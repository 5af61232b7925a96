package consts

import "token-indexer-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	SystemProgramStr      = "11111111111111111111111111111111"
	TokenProgramStr       = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str   = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	TokenMetaProgramIdStr = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

var (
	// Programs
	SystemProgram    = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram     = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022 = types.PubkeyFromBase58(TokenProgram2022Str)
	TokenMetaProgram = types.PubkeyFromBase58(TokenMetaProgramIdStr)
)

// IsTokenProgram 判断是否为 SPL Token 或 Token-2022 程序
func IsTokenProgram(p types.Pubkey) bool {
	return p == TokenProgram || p == TokenProgram2022
}
