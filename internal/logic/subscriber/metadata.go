package subscriber

import (
	"token-indexer-sol/internal/logic/decoder"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/record"
	"token-indexer-sol/internal/types"
)

// NewCreateMetadataSubscriber CreateMetadataAccount / V2 / V3
func NewCreateMetadataSubscriber(program types.Pubkey) Subscriber {
	return &instructionSubscriber{
		desc: Descriptor{
			Name:      "create_metadata",
			ProgramID: program,
			Kinds: []decoder.Kind{
				decoder.KindCreateMetadataAccount,
				decoder.KindCreateMetadataAccountV2,
				decoder.KindCreateMetadataAccountV3,
			},
		},
		extract: func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool) {
			create := ix.(*decoder.CreateMetadataAccount)
			accounts := entry.Instruction.Accounts
			metadata, _ := layout.Lookup(accounts, decoder.RoleMetadata)
			mint, _ := layout.Lookup(accounts, decoder.RoleMint)
			updateAuthority, _ := layout.Lookup(accounts, decoder.RoleUpdateAuthority)
			return &record.CreateMetadataRecord{
				Mint:            mint,
				Metadata:        metadata,
				UpdateAuthority: updateAuthority,
				Args:            *create,
				LogRef:          entry.Log,
			}, true
		},
	}
}
