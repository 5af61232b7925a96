package record

import (
	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/decoder"
	"token-indexer-sol/internal/types"
)

// Record 订阅器从指令中提取出的日志记录（封闭联合类型）
type Record interface {
	// Key 分组键（受影响的主体地址）
	Key() string
	Log() core.LogRef
	isRecord()
}

type InitializeMintRecord struct {
	Mint            types.Pubkey
	MintAuthority   types.Pubkey
	FreezeAuthority *types.Pubkey
	Decimals        uint8
	LogRef          core.LogRef
}

type InitializeAccountRecord struct {
	Account types.Pubkey
	Mint    types.Pubkey
	Owner   types.Pubkey
	LogRef  core.LogRef
}

type MintToRecord struct {
	Mint    types.Pubkey
	Account types.Pubkey
	Amount  uint64
	LogRef  core.LogRef
}

type BurnRecord struct {
	Mint    types.Pubkey
	Account types.Pubkey
	Amount  uint64
	LogRef  core.LogRef
}

// TransferRecord Mint 可能为零值（非 Checked 版本且交易余额中找不到对应 mint）
type TransferRecord struct {
	From   types.Pubkey
	To     types.Pubkey
	Mint   types.Pubkey
	Amount uint64
	LogRef core.LogRef
}

type CreateMetadataRecord struct {
	Mint            types.Pubkey
	Metadata        types.Pubkey
	UpdateAuthority types.Pubkey
	Args            decoder.CreateMetadataAccount
	LogRef          core.LogRef
}

func (r *InitializeMintRecord) Key() string    { return r.Mint.String() }
func (r *InitializeAccountRecord) Key() string { return r.Account.String() }
func (r *MintToRecord) Key() string            { return r.Mint.String() }
func (r *BurnRecord) Key() string              { return r.Mint.String() }
func (r *TransferRecord) Key() string          { return r.From.String() }
func (r *CreateMetadataRecord) Key() string    { return r.Mint.String() }

func (r *InitializeMintRecord) Log() core.LogRef    { return r.LogRef }
func (r *InitializeAccountRecord) Log() core.LogRef { return r.LogRef }
func (r *MintToRecord) Log() core.LogRef            { return r.LogRef }
func (r *BurnRecord) Log() core.LogRef              { return r.LogRef }
func (r *TransferRecord) Log() core.LogRef          { return r.LogRef }
func (r *CreateMetadataRecord) Log() core.LogRef    { return r.LogRef }

func (*InitializeMintRecord) isRecord()    {}
func (*InitializeAccountRecord) isRecord() {}
func (*MintToRecord) isRecord()            {}
func (*BurnRecord) isRecord()              {}
func (*TransferRecord) isRecord()          {}
func (*CreateMetadataRecord) isRecord()    {}
