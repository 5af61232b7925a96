package decoder

import (
	"fmt"

	"token-indexer-sol/internal/consts"
	"token-indexer-sol/internal/types"
)

// Decode 将指令数据解析为具体的 Instruction。
// 任意输入都不会 panic：所有失败均返回 *DecodeError（errors.Is(err, ErrDecode) 为 true）。
func Decode(program types.Pubkey, data []byte) (ix Instruction, err error) {
	defer func() {
		if r := recover(); r != nil {
			ix = nil
			err = newDecodeError(program, data, "panic recovered", fmt.Errorf("%v", r))
		}
	}()

	if len(data) == 0 {
		return nil, newDecodeError(program, data, "empty data", nil)
	}

	switch {
	case consts.IsTokenProgram(program):
		return decodeToken(program, data)
	case program == consts.TokenMetaProgram:
		return decodeMetadata(program, data)
	}
	return nil, newDecodeError(program, data, "unsupported program", nil)
}

// SupportedPrograms 返回可解码的程序列表
func SupportedPrograms() []types.Pubkey {
	return []types.Pubkey{consts.TokenProgram, consts.TokenProgram2022, consts.TokenMetaProgram}
}
