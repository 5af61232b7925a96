package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/decoder"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/record"
	"token-indexer-sol/internal/types"
)

func pk(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	return p
}

var logRef = core.LogRef{Slot: 9, BlockHash: "h", TxIndex: 1, TxSignature: "s", IxIndex: 0, ProgramID: "p"}

func TestMapTransfer(t *testing.T) {
	events := MapToEvents(&record.TransferRecord{From: pk(1), To: pk(2), Mint: pk(3), Amount: 500, LogRef: logRef})
	require.Len(t, events, 2)

	assert.Equal(t, domain.BalanceOutcomeEvent{Account: domain.BalanceID(pk(1).String()), Amount: 500, LogRef: logRef}, events[0])
	assert.Equal(t, domain.BalanceIncomeEvent{Account: domain.BalanceID(pk(2).String()), Amount: 500, LogRef: logRef}, events[1])
	for _, e := range events {
		assert.False(t, e.IsReversed())
		assert.Equal(t, logRef, e.Log())
	}
}

func TestMapMintToAndBurn(t *testing.T) {
	events := MapToEvents(&record.MintToRecord{Mint: pk(5), Account: pk(6), Amount: 1000, LogRef: logRef})
	require.Len(t, events, 2)
	assert.IsType(t, domain.BalanceIncomeEvent{}, events[0])
	assert.Equal(t, domain.TokenSupplyIncreaseEvent{Mint: domain.TokenID(pk(5).String()), Amount: 1000, LogRef: logRef}, events[1])

	events = MapToEvents(&record.BurnRecord{Mint: pk(5), Account: pk(6), Amount: 10, LogRef: logRef})
	require.Len(t, events, 2)
	assert.Equal(t, domain.BalanceOutcomeEvent{Account: domain.BalanceID(pk(6).String()), Amount: 10, LogRef: logRef}, events[0])
	assert.IsType(t, domain.TokenSupplyDecreaseEvent{}, events[1])
}

func TestMapInitializers(t *testing.T) {
	freeze := pk(8)
	events := MapToEvents(&record.InitializeMintRecord{Mint: pk(5), MintAuthority: pk(7), FreezeAuthority: &freeze, Decimals: 9, LogRef: logRef})
	require.Len(t, events, 1)
	initEv := events[0].(domain.TokenInitializeEvent)
	assert.Equal(t, pk(7).String(), initEv.MintAuthority)
	assert.Equal(t, freeze.String(), initEv.FreezeAuthority)
	assert.Equal(t, uint8(9), initEv.Decimals)

	events = MapToEvents(&record.InitializeAccountRecord{Account: pk(1), Mint: pk(5), Owner: pk(2), LogRef: logRef})
	require.Len(t, events, 1)
	assert.Equal(t, domain.BalanceInitializeEvent{
		Account: domain.BalanceID(pk(1).String()), Mint: pk(5).String(), Owner: pk(2).String(), LogRef: logRef,
	}, events[0])
}

func TestMapCreateMetadata(t *testing.T) {
	size := uint64(3)
	events := MapToEvents(&record.CreateMetadataRecord{
		Mint:            pk(5),
		Metadata:        pk(4),
		UpdateAuthority: pk(2),
		Args: decoder.CreateMetadataAccount{
			Version:        3,
			Name:           "Name",
			Symbol:         "SYM",
			URI:            "uri",
			Creators:       []decoder.Creator{{Address: pk(1), Share: 100}},
			Collection:     &decoder.Collection{Verified: true, Key: pk(9)},
			CollectionSize: &size,
		},
		LogRef: logRef,
	})
	require.Len(t, events, 1)
	meta := events[0].(domain.TokenMetadataEvent)
	assert.Equal(t, domain.TokenID(pk(5).String()), meta.Mint)
	assert.Equal(t, "Name", meta.Metadata.Name)
	assert.Equal(t, pk(4).String(), meta.Metadata.MetadataAccount)
	assert.Equal(t, []domain.Creator{{Address: pk(1).String(), Share: 100}}, meta.Metadata.Creators)
	assert.Equal(t, pk(9).String(), meta.Metadata.Collection.Key)
	assert.Equal(t, uint64(3), *meta.Metadata.CollectionSize)
}
