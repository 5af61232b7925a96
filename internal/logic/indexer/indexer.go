package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zeromicro/go-zero/core/errorx"
	"github.com/zeromicro/go-zero/core/threading"

	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/mapper"
	"token-indexer-sol/internal/logic/progress"
	"token-indexer-sol/internal/logic/reconciler"
	"token-indexer-sol/internal/logic/record"
	"token-indexer-sol/internal/logic/subscriber"
	"token-indexer-sol/internal/utils"
	"token-indexer-sol/pkg/logger"
	putils "token-indexer-sol/pkg/utils"
)

// Indexer 区块级编排：匹配 → 映射 → 按实体分组 → 分区并发应用。
// 一次只处理一个区块；回滚也在同一调用方循环中执行，因此回滚期间不会有新区块写入。
type Indexer struct {
	registry *subscriber.Registry
	balances *BalanceReconciler
	tokens   *TokenReconciler
	journal  progress.Journal
	workers  int
}

func New(
	registry *subscriber.Registry,
	balances *BalanceReconciler,
	tokens *TokenReconciler,
	journal progress.Journal,
	workers int,
) *Indexer {
	if workers <= 0 {
		workers = 1
	}
	return &Indexer{
		registry: registry,
		balances: balances,
		tokens:   tokens,
		journal:  journal,
		workers:  workers,
	}
}

func (ix *Indexer) Balances() *BalanceReconciler { return ix.balances }
func (ix *Indexer) Tokens() *TokenReconciler     { return ix.tokens }
func (ix *Indexer) Journal() progress.Journal    { return ix.journal }

// ProcessBlock 应用一个区块产生的全部事件。
// 失败后可以对同一区块重复调用：已应用的事件会被幂等跳过。
// 部分失败时 journal 被改写为实际落库的条目，回滚该 slot 不会碰到未应用的出处。
func (ix *Indexer) ProcessBlock(ctx context.Context, block *feed.Block) error {
	events := ix.extractEvents(block)
	groups := groupEvents(events)

	info := progress.SlotInfo{
		Slot:       block.Slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  block.BlockHash,
		BlockTime:  block.BlockTime,
	}
	// 先写 journal 再应用，保证任何已落库的事件都能被回滚
	if err := ix.journal.Record(ctx, info, journalEntries(groups)); err != nil {
		return fmt.Errorf("journal slot %d: %w", block.Slot, err)
	}

	if err := ix.run(ctx, groups, ix.applyGroup); err != nil {
		// ctx 可能已取消，改写 journal 不受其影响
		if jerr := ix.journal.Record(context.WithoutCancel(ctx), info, appliedEntries(groups)); jerr != nil {
			logger.Errorf("[indexer] rewrite journal slot=%d failed: %v", block.Slot, jerr)
		}
		return fmt.Errorf("process slot %d: %w", block.Slot, err)
	}
	logger.Debugf("[indexer] slot=%d entries=%d events=%d entities=%d",
		block.Slot, len(block.Entries), len(events), len(groups))
	return nil
}

// RevertSlots 回滚被丢弃分叉上的区块，按 slot 从高到低处理
func (ix *Indexer) RevertSlots(ctx context.Context, slots []uint64) error {
	ordered := slices.Clone(slots)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)
	slices.Reverse(ordered)

	for _, slot := range ordered {
		entries, err := ix.journal.Entries(ctx, slot)
		if err != nil {
			return fmt.Errorf("load journal slot %d: %w", slot, err)
		}
		if len(entries) > 0 {
			if err := ix.run(ctx, revertGroups(entries), ix.revertGroup); err != nil {
				return fmt.Errorf("revert slot %d: %w", slot, err)
			}
		}
		if err := ix.journal.Forget(ctx, slot); err != nil {
			return fmt.Errorf("forget slot %d: %w", slot, err)
		}
		logger.Infof("[indexer] reverted slot=%d entries=%d", slot, len(entries))
	}
	return nil
}

func (ix *Indexer) extractEvents(block *feed.Block) []domain.Event {
	matched := putils.ParallelMap(block.Entries, ix.workers, func(e *feed.LogEntry) []record.Record {
		return ix.registry.Match(block, e)
	})

	var events []domain.Event
	for _, recs := range matched {
		for _, rec := range recs {
			events = append(events, mapper.MapToEvents(rec)...)
		}
	}
	return events
}

// run 按实体 id 分区并发执行；同一分区内顺序执行，遇错即停
func (ix *Indexer) run(ctx context.Context, groups []*entityGroup, fn func(context.Context, *entityGroup) error) error {
	if len(groups) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	partitions := make([][]*entityGroup, ix.workers)
	capHint := utils.CalcCapPerPartition(len(groups), ix.workers, 4)
	for _, g := range groups {
		p := utils.PartitionHashString(g.key(), uint32(ix.workers))
		if partitions[p] == nil {
			partitions[p] = make([]*entityGroup, 0, capHint)
		}
		partitions[p] = append(partitions[p], g)
	}

	errs := make([]error, len(partitions))
	group := threading.NewRoutineGroup()
	for i, part := range partitions {
		if len(part) == 0 {
			continue
		}
		group.RunSafe(func() {
			for _, g := range part {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					return
				}
				if err := fn(ctx, g); err != nil {
					errs[i] = err
					return
				}
			}
		})
	}
	group.Wait()

	// 不一致错误优先返回，调用方据此停止
	var be errorx.BatchError
	for _, err := range errs {
		if errors.Is(err, reconciler.ErrReorgInconsistency) {
			return err
		}
		be.Add(err)
	}
	return be.Err()
}

func (ix *Indexer) applyGroup(ctx context.Context, g *entityGroup) error {
	switch g.kind {
	case progress.KindBalance:
		id := domain.BalanceID(g.id)
		for _, e := range g.balance {
			_, err := ix.balances.ApplyNew(ctx, id, e)
			if err == nil || errors.Is(err, reconciler.ErrUnpublished) {
				g.markApplied(e.Log())
			}
			if err != nil {
				return err
			}
		}
	case progress.KindToken:
		id := domain.TokenID(g.id)
		for _, e := range g.token {
			_, err := ix.tokens.ApplyNew(ctx, id, e)
			if err == nil || errors.Is(err, reconciler.ErrUnpublished) {
				g.markApplied(e.Log())
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (ix *Indexer) revertGroup(ctx context.Context, g *entityGroup) error {
	for _, log := range g.logs {
		var err error
		switch g.kind {
		case progress.KindBalance:
			_, err = ix.balances.Revert(ctx, domain.BalanceID(g.id), log)
		case progress.KindToken:
			_, err = ix.tokens.Revert(ctx, domain.TokenID(g.id), log)
		default:
			err = fmt.Errorf("unknown entity kind %d", g.kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
