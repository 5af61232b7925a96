package decoder

import (
	"encoding/binary"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"

	"token-indexer-sol/internal/types"
)

// decodeToken 解析 SPL Token / Token-2022 的公共 opcode
func decodeToken(program types.Pubkey, data []byte) (Instruction, error) {
	switch sdktoken.Instruction(data[0]) {
	// InitializeMint: [0]=instr, [1]=decimals, [2:34]=mint_authority, [34]=COption tag, [35:67]=freeze_authority
	case sdktoken.InstructionInitializeMint, sdktoken.InstructionInitializeMint2:
		if len(data) < 35 {
			return nil, newDecodeError(program, data, "initialize mint: short data", nil)
		}
		ix := &InitializeMint{
			V2:       sdktoken.Instruction(data[0]) == sdktoken.InstructionInitializeMint2,
			Decimals: data[1],
		}
		copy(ix.MintAuthority[:], data[2:34])
		switch data[34] {
		case 0:
		case 1:
			if len(data) < 67 {
				return nil, newDecodeError(program, data, "initialize mint: short freeze authority", nil)
			}
			var freeze types.Pubkey
			copy(freeze[:], data[35:67])
			ix.FreezeAuthority = &freeze
		default:
			return nil, newDecodeError(program, data, "initialize mint: invalid option tag", nil)
		}
		return ix, nil

	// InitializeAccount: owner 位于 accounts[2]
	case sdktoken.InstructionInitializeAccount:
		return &InitializeAccount{Version: 1}, nil

	// InitializeAccount2/3: [1:33]=owner
	case sdktoken.InstructionInitializeAccount2, sdktoken.InstructionInitializeAccount3:
		if len(data) < 33 {
			return nil, newDecodeError(program, data, "initialize account: short owner", nil)
		}
		var owner types.Pubkey
		copy(owner[:], data[1:33])
		version := uint8(2)
		if sdktoken.Instruction(data[0]) == sdktoken.InstructionInitializeAccount3 {
			version = 3
		}
		return &InitializeAccount{Version: version, Owner: &owner}, nil

	// MintTo: [1:9]=amount, MintToChecked: [9]=decimals
	case sdktoken.InstructionMintTo, sdktoken.InstructionMintToChecked:
		checked := sdktoken.Instruction(data[0]) == sdktoken.InstructionMintToChecked
		amount, decimals, err := amountArgs(program, data, checked)
		if err != nil {
			return nil, err
		}
		return &MintTo{Checked: checked, Amount: amount, Decimals: decimals}, nil

	case sdktoken.InstructionBurn, sdktoken.InstructionBurnChecked:
		checked := sdktoken.Instruction(data[0]) == sdktoken.InstructionBurnChecked
		amount, decimals, err := amountArgs(program, data, checked)
		if err != nil {
			return nil, err
		}
		return &Burn{Checked: checked, Amount: amount, Decimals: decimals}, nil

	case sdktoken.InstructionTransfer, sdktoken.InstructionTransferChecked:
		checked := sdktoken.Instruction(data[0]) == sdktoken.InstructionTransferChecked
		amount, decimals, err := amountArgs(program, data, checked)
		if err != nil {
			return nil, err
		}
		return &Transfer{Checked: checked, Amount: amount, Decimals: decimals}, nil
	}
	return nil, newDecodeError(program, data, "unsupported token opcode", nil)
}

func amountArgs(program types.Pubkey, data []byte, checked bool) (uint64, uint8, error) {
	need := 9
	if checked {
		need = 10
	}
	if len(data) < need {
		return 0, 0, newDecodeError(program, data, "amount: short data", nil)
	}
	amount := binary.LittleEndian.Uint64(data[1:9])
	var decimals uint8
	if checked {
		decimals = data[9]
	}
	return amount, decimals, nil
}
