package mapper

import (
	"token-indexer-sol/internal/logic/decoder"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/record"
)

// MapToEvents 将一条日志记录转换为领域事件。
// 产出的事件 reversed=false，LogRef 原样复制；同一记录产生的多条事件共享 LogRef。
func MapToEvents(rec record.Record) []domain.Event {
	switch r := rec.(type) {
	case *record.InitializeMintRecord:
		e := domain.TokenInitializeEvent{
			Mint:          domain.TokenID(r.Mint.String()),
			MintAuthority: r.MintAuthority.String(),
			Decimals:      r.Decimals,
			LogRef:        r.LogRef,
		}
		if r.FreezeAuthority != nil {
			e.FreezeAuthority = r.FreezeAuthority.String()
		}
		return []domain.Event{e}

	case *record.InitializeAccountRecord:
		return []domain.Event{domain.BalanceInitializeEvent{
			Account: domain.BalanceID(r.Account.String()),
			Mint:    r.Mint.String(),
			Owner:   r.Owner.String(),
			LogRef:  r.LogRef,
		}}

	case *record.MintToRecord:
		return []domain.Event{
			domain.BalanceIncomeEvent{Account: domain.BalanceID(r.Account.String()), Amount: r.Amount, LogRef: r.LogRef},
			domain.TokenSupplyIncreaseEvent{Mint: domain.TokenID(r.Mint.String()), Amount: r.Amount, LogRef: r.LogRef},
		}

	case *record.BurnRecord:
		return []domain.Event{
			domain.BalanceOutcomeEvent{Account: domain.BalanceID(r.Account.String()), Amount: r.Amount, LogRef: r.LogRef},
			domain.TokenSupplyDecreaseEvent{Mint: domain.TokenID(r.Mint.String()), Amount: r.Amount, LogRef: r.LogRef},
		}

	case *record.TransferRecord:
		return []domain.Event{
			domain.BalanceOutcomeEvent{Account: domain.BalanceID(r.From.String()), Amount: r.Amount, LogRef: r.LogRef},
			domain.BalanceIncomeEvent{Account: domain.BalanceID(r.To.String()), Amount: r.Amount, LogRef: r.LogRef},
		}

	case *record.CreateMetadataRecord:
		return []domain.Event{domain.TokenMetadataEvent{
			Mint:     domain.TokenID(r.Mint.String()),
			Metadata: toTokenMetadata(r),
			LogRef:   r.LogRef,
		}}
	}
	return nil
}

func toTokenMetadata(r *record.CreateMetadataRecord) domain.TokenMetadata {
	args := r.Args
	meta := domain.TokenMetadata{
		MetadataAccount:      r.Metadata.String(),
		UpdateAuthority:      r.UpdateAuthority.String(),
		Name:                 args.Name,
		Symbol:               args.Symbol,
		URI:                  args.URI,
		SellerFeeBasisPoints: args.SellerFeeBasisPoints,
		IsMutable:            args.IsMutable,
		Creators:             toCreators(args.Creators),
	}
	if args.Collection != nil {
		meta.Collection = &domain.Collection{Verified: args.Collection.Verified, Key: args.Collection.Key.String()}
	}
	if args.Uses != nil {
		meta.Uses = &domain.Uses{UseMethod: args.Uses.UseMethod, Remaining: args.Uses.Remaining, Total: args.Uses.Total}
	}
	if args.CollectionSize != nil {
		size := *args.CollectionSize
		meta.CollectionSize = &size
	}
	return meta
}

func toCreators(in []decoder.Creator) []domain.Creator {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Creator, len(in))
	for i, c := range in {
		out[i] = domain.Creator{Address: c.Address.String(), Verified: c.Verified, Share: c.Share}
	}
	return out
}
