package txadapter

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"token-indexer-sol/internal/consts"
	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/types"
	"token-indexer-sol/pkg/logger"
)

var ErrInvalidBlock = errors.New("invalid block")

// IsValidGrpcTx 过滤投票交易、失败交易和结构不完整的交易
func IsValidGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) bool {
	if tx == nil ||
		tx.Transaction == nil ||
		tx.Transaction.Message == nil ||
		len(tx.Transaction.Signatures) == 0 ||
		len(tx.Transaction.Signatures[0]) != 64 ||
		tx.IsVote ||
		tx.Meta == nil ||
		tx.Meta.Err != nil {
		return false
	}
	return true
}

// AdaptBlock 把 gRPC 推送的区块展开为按执行顺序排列的指令序列。
// 单笔交易解析失败只跳过该交易；区块头不合法时返回 ErrInvalidBlock。
func AdaptBlock(block *pb.SubscribeUpdateBlock) (*feed.Block, error) {
	if block == nil {
		return nil, fmt.Errorf("%w: nil block", ErrInvalidBlock)
	}
	if _, err := types.HashFromBase58(block.Blockhash); err != nil {
		return nil, fmt.Errorf("%w: slot %d blockhash %q: %v", ErrInvalidBlock, block.Slot, block.Blockhash, err)
	}

	out := &feed.Block{
		Slot:       block.Slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  block.Blockhash,
		ParentHash: block.ParentBlockhash,
	}
	if block.BlockTime != nil {
		out.BlockTime = block.BlockTime.Timestamp
	}
	if block.BlockHeight != nil {
		out.Height = block.BlockHeight.BlockHeight
	}

	for _, tx := range block.Transactions {
		if !IsValidGrpcTx(tx) {
			continue
		}
		entries, err := AdaptTx(out, tx)
		if err != nil {
			logger.Warnf("[txadapter] slot=%d tx=%d sig=%s 解析失败，跳过: %v",
				block.Slot, tx.Index, base58.Encode(tx.Transaction.Signatures[0]), err)
			continue
		}
		out.Entries = append(out.Entries, entries...)
	}
	return out, nil
}

// AdaptTx 扁平化一笔交易的主指令与 inner 指令。
// InnerIndex 为 0 表示主指令，1 及以上为对应 inner 指令的序号；
// 同一交易的所有条目共享一份 token account → mint 表。
func AdaptTx(block *feed.Block, tx *pb.SubscribeUpdateTransactionInfo) (_ []*feed.LogEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("AdaptTx panic: %v", r)
		}
	}()

	accountKeys, err := buildFullAccountKeys(
		tx.Transaction.Message.AccountKeys,
		tx.Meta.LoadedWritableAddresses,
		tx.Meta.LoadedReadonlyAddresses,
	)
	if err != nil {
		return nil, fmt.Errorf("buildFullAccountKeys error: %w", err)
	}
	if len(accountKeys) == 0 {
		return nil, fmt.Errorf("invalid transaction: missing accountKeys")
	}

	mints := buildTokenMints(tx, accountKeys)
	signature := base58.Encode(tx.Transaction.Signatures[0])

	newEntry := func(ixIndex, innerIndex int, programIdx uint32, accounts, data []byte) (*feed.LogEntry, error) {
		if int(programIdx) >= len(accountKeys) {
			return nil, fmt.Errorf("program index %d out of range", programIdx)
		}
		accs, err := resolveAccounts(accounts, accountKeys)
		if err != nil {
			return nil, err
		}
		program := accountKeys[programIdx]
		return &feed.LogEntry{
			Log: core.LogRef{
				Slot:        block.Slot,
				BlockHash:   block.BlockHash,
				TxIndex:     uint32(tx.Index),
				TxSignature: signature,
				IxIndex:     uint16(ixIndex),
				InnerIndex:  uint16(innerIndex),
				ProgramID:   program.String(),
			},
			Instruction: feed.Instruction{ProgramID: program, Accounts: accs, Data: data},
			TokenMints:  mints,
		}, nil
	}

	rawInstructions := tx.Transaction.Message.Instructions
	rawInners := tx.Meta.InnerInstructions
	entries := make([]*feed.LogEntry, 0, max(len(rawInstructions)*2, 8))
	innerIndex := 0

	for i, inst := range rawInstructions {
		e, err := newEntry(i, 0, inst.ProgramIdIndex, inst.Accounts, inst.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		entries = append(entries, e)

		// inner 列表按主指令索引递增排列，顺序推进即可
		for innerIndex < len(rawInners) && int(rawInners[innerIndex].Index) < i {
			innerIndex++
		}
		if innerIndex < len(rawInners) && int(rawInners[innerIndex].Index) == i {
			for j, inner := range rawInners[innerIndex].Instructions {
				e, err := newEntry(i, j+1, inner.ProgramIdIndex, inner.Accounts, inner.Data)
				if err != nil {
					return nil, fmt.Errorf("inner instruction %d.%d: %w", i, j+1, err)
				}
				entries = append(entries, e)
			}
			innerIndex++
		}
	}
	return entries, nil
}

// buildTokenMints 从 pre/post token balances 构建 token account → mint 表，
// 只收录 Token / Token-2022 账户；Pre-only 账户（交易内被关闭）同样收录。
func buildTokenMints(tx *pb.SubscribeUpdateTransactionInfo, accountKeys []types.Pubkey) feed.TokenMints {
	postList := tx.Meta.PostTokenBalances
	preList := tx.Meta.PreTokenBalances
	if len(postList) == 0 && len(preList) == 0 {
		return nil
	}

	mints := make(feed.TokenMints, len(postList)+len(preList))
	resolver := newMintResolver(4)
	add := func(b *pb.TokenBalance) {
		if !isTokenProgram(b.ProgramId) || int(b.AccountIndex) >= len(accountKeys) {
			return
		}
		account := accountKeys[b.AccountIndex]
		if _, ok := mints[account]; ok {
			return
		}
		if mint, ok := resolver.resolve(b.Mint); ok {
			mints[account] = mint
		}
	}
	for _, post := range postList {
		add(post)
	}
	for _, pre := range preList {
		add(pre)
	}
	return mints
}

func isTokenProgram(programID string) bool {
	return programID == consts.TokenProgramStr || programID == consts.TokenProgram2022Str
}
