package decoder

import "token-indexer-sol/internal/types"

// Kind 解码后的指令种类
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInitializeMint
	KindInitializeMint2
	KindInitializeAccount
	KindInitializeAccount2
	KindInitializeAccount3
	KindMintTo
	KindMintToChecked
	KindBurn
	KindBurnChecked
	KindTransfer
	KindTransferChecked
	KindCreateMetadataAccount
	KindCreateMetadataAccountV2
	KindCreateMetadataAccountV3
)

var kindNames = map[Kind]string{
	KindInitializeMint:          "InitializeMint",
	KindInitializeMint2:         "InitializeMint2",
	KindInitializeAccount:       "InitializeAccount",
	KindInitializeAccount2:      "InitializeAccount2",
	KindInitializeAccount3:      "InitializeAccount3",
	KindMintTo:                  "MintTo",
	KindMintToChecked:           "MintToChecked",
	KindBurn:                    "Burn",
	KindBurnChecked:             "BurnChecked",
	KindTransfer:                "Transfer",
	KindTransferChecked:         "TransferChecked",
	KindCreateMetadataAccount:   "CreateMetadataAccount",
	KindCreateMetadataAccountV2: "CreateMetadataAccountV2",
	KindCreateMetadataAccountV3: "CreateMetadataAccountV3",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Instruction 解码结果（封闭联合类型）
type Instruction interface {
	Kind() Kind
	isInstruction()
}

// InitializeMint 对应 InitializeMint / InitializeMint2
type InitializeMint struct {
	V2              bool
	Decimals        uint8
	MintAuthority   types.Pubkey
	FreezeAuthority *types.Pubkey
}

// InitializeAccount 对应 InitializeAccount / 2 / 3；
// Version 为 1 时 owner 位于账户列表，否则位于指令数据中（Owner 非空）
type InitializeAccount struct {
	Version uint8
	Owner   *types.Pubkey
}

// MintTo 对应 MintTo / MintToChecked，Decimals 仅 Checked 版本有效
type MintTo struct {
	Checked  bool
	Amount   uint64
	Decimals uint8
}

// Burn 对应 Burn / BurnChecked
type Burn struct {
	Checked  bool
	Amount   uint64
	Decimals uint8
}

// Transfer 对应 Transfer / TransferChecked
type Transfer struct {
	Checked  bool
	Amount   uint64
	Decimals uint8
}

// Creator Metaplex 创作者
type Creator struct {
	Address  types.Pubkey
	Verified bool
	Share    uint8
}

type Collection struct {
	Verified bool
	Key      types.Pubkey
}

type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

// CreateMetadataAccount 对应 CreateMetadataAccount / V2 / V3
type CreateMetadataAccount struct {
	Version              uint8
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	Collection           *Collection
	Uses                 *Uses
	IsMutable            bool
	CollectionSize       *uint64 // V3 collection_details
}

func (ix *InitializeMint) Kind() Kind {
	if ix.V2 {
		return KindInitializeMint2
	}
	return KindInitializeMint
}

func (ix *InitializeAccount) Kind() Kind {
	switch ix.Version {
	case 2:
		return KindInitializeAccount2
	case 3:
		return KindInitializeAccount3
	default:
		return KindInitializeAccount
	}
}

func (ix *MintTo) Kind() Kind {
	if ix.Checked {
		return KindMintToChecked
	}
	return KindMintTo
}

func (ix *Burn) Kind() Kind {
	if ix.Checked {
		return KindBurnChecked
	}
	return KindBurn
}

func (ix *Transfer) Kind() Kind {
	if ix.Checked {
		return KindTransferChecked
	}
	return KindTransfer
}

func (ix *CreateMetadataAccount) Kind() Kind {
	switch ix.Version {
	case 2:
		return KindCreateMetadataAccountV2
	case 3:
		return KindCreateMetadataAccountV3
	default:
		return KindCreateMetadataAccount
	}
}

func (*InitializeMint) isInstruction()        {}
func (*InitializeAccount) isInstruction()     {}
func (*MintTo) isInstruction()                {}
func (*Burn) isInstruction()                  {}
func (*Transfer) isInstruction()              {}
func (*CreateMetadataAccount) isInstruction() {}
