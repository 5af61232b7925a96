package decoder

import "token-indexer-sol/internal/types"

// Role 账户在指令中的语义角色
type Role uint8

const (
	RoleMint Role = iota
	RoleAccount
	RoleOwner
	RoleSource
	RoleDestination
	RoleAuthority
	RoleMetadata
	RolePayer
	RoleUpdateAuthority
)

// AccountLayout 角色 → 账户下标
type AccountLayout map[Role]int

// 合约源代码:
// SplToken: https://github.com/solana-program/token/blob/main/program/src/instruction.rs
// Metadata: https://github.com/metaplex-foundation/mpl-token-metadata
var accountLayouts = map[Kind]AccountLayout{
	KindInitializeMint:     {RoleMint: 0},
	KindInitializeMint2:    {RoleMint: 0},
	KindInitializeAccount:  {RoleAccount: 0, RoleMint: 1, RoleOwner: 2},
	KindInitializeAccount2: {RoleAccount: 0, RoleMint: 1},
	KindInitializeAccount3: {RoleAccount: 0, RoleMint: 1},
	KindMintTo:             {RoleMint: 0, RoleAccount: 1, RoleAuthority: 2},
	KindMintToChecked:      {RoleMint: 0, RoleAccount: 1, RoleAuthority: 2},
	KindBurn:               {RoleAccount: 0, RoleMint: 1, RoleAuthority: 2},
	KindBurnChecked:        {RoleAccount: 0, RoleMint: 1, RoleAuthority: 2},
	KindTransfer:           {RoleSource: 0, RoleDestination: 1, RoleAuthority: 2},
	KindTransferChecked:    {RoleSource: 0, RoleMint: 1, RoleDestination: 2, RoleAuthority: 3},
	KindCreateMetadataAccount: {
		RoleMetadata: 0, RoleMint: 1, RoleAuthority: 2, RolePayer: 3, RoleUpdateAuthority: 4,
	},
	KindCreateMetadataAccountV2: {
		RoleMetadata: 0, RoleMint: 1, RoleAuthority: 2, RolePayer: 3, RoleUpdateAuthority: 4,
	},
	KindCreateMetadataAccountV3: {
		RoleMetadata: 0, RoleMint: 1, RoleAuthority: 2, RolePayer: 3, RoleUpdateAuthority: 4,
	},
}

// AccountPositions 返回指令种类对应的账户布局
func AccountPositions(kind Kind) (AccountLayout, bool) {
	l, ok := accountLayouts[kind]
	return l, ok
}

// MinAccounts 布局要求的最少账户数
func (l AccountLayout) MinAccounts() int {
	n := 0
	for _, pos := range l {
		if pos+1 > n {
			n = pos + 1
		}
	}
	return n
}

// Lookup 按角色取账户，越界或无此角色返回 false
func (l AccountLayout) Lookup(accounts []types.Pubkey, role Role) (types.Pubkey, bool) {
	pos, ok := l[role]
	if !ok || pos >= len(accounts) {
		return types.Pubkey{}, false
	}
	return accounts[pos], true
}
