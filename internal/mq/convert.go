package mq

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"token-indexer-sol/internal/consts"
	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/reconciler"
)

// 金额与余额一律编码为十进制字符串，小整数统一转为 uint32

func logFields(log core.LogRef) map[string]any {
	return map[string]any{
		"slot":        strconv.FormatUint(log.Slot, 10),
		"blockHash":   log.BlockHash,
		"txIndex":     log.TxIndex,
		"txSignature": log.TxSignature,
		"ixIndex":     uint32(log.IxIndex),
		"innerIndex":  uint32(log.InnerIndex),
		"programId":   log.ProgramID,
		"eventId":     log.EventID(),
	}
}

func causeFields(typ string, reversed bool, log core.LogRef, extra map[string]any) map[string]any {
	m := map[string]any{
		"type":     typ,
		"reversed": reversed,
		"log":      logFields(log),
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func balanceCause(e domain.BalanceEvent) map[string]any {
	extra := map[string]any{"account": string(e.BalanceID())}
	switch ev := e.(type) {
	case domain.BalanceInitializeEvent:
		extra["mint"] = ev.Mint
		extra["owner"] = ev.Owner
	case domain.BalanceIncomeEvent:
		extra["amount"] = strconv.FormatUint(ev.Amount, 10)
	case domain.BalanceOutcomeEvent:
		extra["amount"] = strconv.FormatUint(ev.Amount, 10)
	}
	return causeFields(e.Type(), e.IsReversed(), e.Log(), extra)
}

func tokenCause(e domain.TokenEvent) map[string]any {
	extra := map[string]any{"mint": string(e.TokenID())}
	switch ev := e.(type) {
	case domain.TokenInitializeEvent:
		extra["mintAuthority"] = ev.MintAuthority
		extra["freezeAuthority"] = ev.FreezeAuthority
		extra["decimals"] = uint32(ev.Decimals)
	case domain.TokenSupplyIncreaseEvent:
		extra["amount"] = strconv.FormatUint(ev.Amount, 10)
	case domain.TokenSupplyDecreaseEvent:
		extra["amount"] = strconv.FormatUint(ev.Amount, 10)
	case domain.TokenMetadataEvent:
		extra["metadata"] = metadataFields(&ev.Metadata)
	}
	return causeFields(e.Type(), e.IsReversed(), e.Log(), extra)
}

func metadataFields(md *domain.TokenMetadata) map[string]any {
	m := map[string]any{
		"metadataAccount":      md.MetadataAccount,
		"updateAuthority":      md.UpdateAuthority,
		"name":                 md.Name,
		"symbol":               md.Symbol,
		"uri":                  md.URI,
		"sellerFeeBasisPoints": uint32(md.SellerFeeBasisPoints),
		"isMutable":            md.IsMutable,
	}
	if len(md.Creators) > 0 {
		creators := make([]any, 0, len(md.Creators))
		for _, c := range md.Creators {
			creators = append(creators, map[string]any{"address": c.Address, "verified": c.Verified, "share": uint32(c.Share)})
		}
		m["creators"] = creators
	}
	if md.Collection != nil {
		m["collection"] = map[string]any{"key": md.Collection.Key, "verified": md.Collection.Verified}
	}
	if md.CollectionSize != nil {
		m["collectionSize"] = strconv.FormatUint(*md.CollectionSize, 10)
	}
	return m
}

func changeStruct(kind, id string, reverted bool, entity map[string]any, causes []any) (proto.Message, error) {
	s, err := structpb.NewStruct(map[string]any{
		"chainId":  consts.ChainIDSolana,
		"kind":     kind,
		"id":       id,
		"reverted": reverted,
		"entity":   entity,
		"causes":   causes,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s change: %w", kind, err)
	}
	return s, nil
}

// BalanceChangeMessage 余额变更 → structpb 消息，key 为 token account
func BalanceChangeMessage(change reconciler.Change[domain.BalanceEvent, domain.Balance]) (string, proto.Message, error) {
	b := change.Entity
	causes := make([]any, 0, len(change.Causes))
	for _, e := range change.Causes {
		causes = append(causes, balanceCause(e))
	}
	entity := map[string]any{
		"account": string(b.Account),
		"mint":    b.Mint,
		"owner":   b.Owner,
		"value":   strconv.FormatInt(b.Value, 10),
	}
	msg, err := changeStruct("balance", string(b.Account), change.Reverted, entity, causes)
	return string(b.Account), msg, err
}

// TokenChangeMessage mint 变更 → structpb 消息，key 为 mint
func TokenChangeMessage(change reconciler.Change[domain.TokenEvent, domain.Token]) (string, proto.Message, error) {
	t := change.Entity
	causes := make([]any, 0, len(change.Causes))
	for _, e := range change.Causes {
		causes = append(causes, tokenCause(e))
	}
	entity := map[string]any{
		"mint":            string(t.Mint),
		"mintAuthority":   t.MintAuthority,
		"freezeAuthority": t.FreezeAuthority,
		"decimals":        uint32(t.Decimals),
		"supply":          strconv.FormatInt(t.Supply, 10),
	}
	if t.Metadata != nil {
		entity["metadata"] = metadataFields(t.Metadata)
	}
	msg, err := changeStruct("token", string(t.Mint), change.Reverted, entity, causes)
	return string(t.Mint), msg, err
}
