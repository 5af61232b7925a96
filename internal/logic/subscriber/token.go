package subscriber

import (
	"token-indexer-sol/internal/logic/decoder"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/record"
	"token-indexer-sol/internal/types"
)

// NewInitializeMintSubscriber InitializeMint / InitializeMint2
func NewInitializeMintSubscriber(program types.Pubkey) Subscriber {
	return &instructionSubscriber{
		desc: Descriptor{
			Name:      "initialize_mint",
			ProgramID: program,
			Kinds:     []decoder.Kind{decoder.KindInitializeMint, decoder.KindInitializeMint2},
		},
		extract: func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool) {
			args := ix.(*decoder.InitializeMint)
			mint, _ := layout.Lookup(entry.Instruction.Accounts, decoder.RoleMint)
			return &record.InitializeMintRecord{
				Mint:            mint,
				MintAuthority:   args.MintAuthority,
				FreezeAuthority: args.FreezeAuthority,
				Decimals:        args.Decimals,
				LogRef:          entry.Log,
			}, true
		},
	}
}

// NewInitializeAccountSubscriber InitializeAccount / 2 / 3
func NewInitializeAccountSubscriber(program types.Pubkey) Subscriber {
	return &instructionSubscriber{
		desc: Descriptor{
			Name:      "initialize_account",
			ProgramID: program,
			Kinds: []decoder.Kind{
				decoder.KindInitializeAccount,
				decoder.KindInitializeAccount2,
				decoder.KindInitializeAccount3,
			},
		},
		extract: func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool) {
			args := ix.(*decoder.InitializeAccount)
			accounts := entry.Instruction.Accounts
			account, _ := layout.Lookup(accounts, decoder.RoleAccount)
			mint, _ := layout.Lookup(accounts, decoder.RoleMint)

			var owner types.Pubkey
			if args.Owner != nil {
				owner = *args.Owner
			} else {
				var ok bool
				if owner, ok = layout.Lookup(accounts, decoder.RoleOwner); !ok {
					return nil, false
				}
			}
			return &record.InitializeAccountRecord{
				Account: account,
				Mint:    mint,
				Owner:   owner,
				LogRef:  entry.Log,
			}, true
		},
	}
}

// NewMintToSubscriber MintTo / MintToChecked
func NewMintToSubscriber(program types.Pubkey) Subscriber {
	return &instructionSubscriber{
		desc: Descriptor{
			Name:      "mint_to",
			ProgramID: program,
			Kinds:     []decoder.Kind{decoder.KindMintTo, decoder.KindMintToChecked},
		},
		extract: func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool) {
			mintTo := ix.(*decoder.MintTo)
			mint, _ := layout.Lookup(entry.Instruction.Accounts, decoder.RoleMint)
			account, _ := layout.Lookup(entry.Instruction.Accounts, decoder.RoleAccount)
			return &record.MintToRecord{
				Mint:    mint,
				Account: account,
				Amount:  mintTo.Amount,
				LogRef:  entry.Log,
			}, true
		},
	}
}

// NewBurnSubscriber Burn / BurnChecked
func NewBurnSubscriber(program types.Pubkey) Subscriber {
	return &instructionSubscriber{
		desc: Descriptor{
			Name:      "burn",
			ProgramID: program,
			Kinds:     []decoder.Kind{decoder.KindBurn, decoder.KindBurnChecked},
		},
		extract: func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool) {
			burn := ix.(*decoder.Burn)
			mint, _ := layout.Lookup(entry.Instruction.Accounts, decoder.RoleMint)
			account, _ := layout.Lookup(entry.Instruction.Accounts, decoder.RoleAccount)
			return &record.BurnRecord{
				Mint:    mint,
				Account: account,
				Amount:  burn.Amount,
				LogRef:  entry.Log,
			}, true
		},
	}
}

// NewTransferSubscriber Transfer / TransferChecked。
// 非 Checked 版本指令里没有 mint，从交易的 token balance 表里补
func NewTransferSubscriber(program types.Pubkey) Subscriber {
	return &instructionSubscriber{
		desc: Descriptor{
			Name:      "transfer",
			ProgramID: program,
			Kinds:     []decoder.Kind{decoder.KindTransfer, decoder.KindTransferChecked},
		},
		extract: func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool) {
			transfer := ix.(*decoder.Transfer)
			accounts := entry.Instruction.Accounts
			from, _ := layout.Lookup(accounts, decoder.RoleSource)
			to, _ := layout.Lookup(accounts, decoder.RoleDestination)

			mint, ok := layout.Lookup(accounts, decoder.RoleMint)
			if !ok {
				if mint, ok = entry.TokenMints.MintOf(from); !ok {
					mint, _ = entry.TokenMints.MintOf(to)
				}
			}
			return &record.TransferRecord{
				From:   from,
				To:     to,
				Mint:   mint,
				Amount: transfer.Amount,
				LogRef: entry.Log,
			}, true
		},
	}
}
