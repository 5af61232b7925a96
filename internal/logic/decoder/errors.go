package decoder

import (
	"errors"
	"fmt"

	"token-indexer-sol/internal/types"
)

// ErrDecode 所有解码失败都可以通过 errors.Is(err, ErrDecode) 判断
var ErrDecode = errors.New("instruction decode failed")

// DecodeError 携带失败的程序、opcode 与原因
type DecodeError struct {
	Program types.Pubkey
	Opcode  int // 数据为空时为 -1
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode program=%s opcode=%d: %s: %v", e.Program, e.Opcode, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode program=%s opcode=%d: %s", e.Program, e.Opcode, e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

func newDecodeError(program types.Pubkey, data []byte, reason string, err error) *DecodeError {
	opcode := -1
	if len(data) > 0 {
		opcode = int(data[0])
	}
	return &DecodeError{Program: program, Opcode: opcode, Reason: reason, Err: err}
}
