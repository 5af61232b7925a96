package grpc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"

	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/indexer"
	"token-indexer-sol/internal/logic/progress"
	"token-indexer-sol/internal/logic/reconciler"
	"token-indexer-sol/internal/logic/txadapter"
)

var errStopped = errors.New("service stop")

// SlotSubmitter 接收已处理 slot 区间做延迟复核
type SlotSubmitter interface {
	Submit(from, to uint64)
}

type BlockProcessorOption struct {
	MaxRetries     uint64        // 单个区块失败后的最大重试次数
	RetryInterval  time.Duration // 首次重试间隔，指数退避
	RetainSlots    uint64        // journal 保留的 slot 数，更早的视为已最终确认
	PruneEverySlot uint64        // 每处理多少个 slot 清理一次 journal
}

// BlockProcessor 单线程消费区块与回滚请求。
// 回滚与新区块在同一循环中串行执行，回滚期间不会有新区块写入。
type BlockProcessor struct {
	indexer   *indexer.Indexer
	journal   progress.Journal
	checker   SlotSubmitter
	blockChan <-chan *pb.SubscribeUpdateBlock
	reorgChan <-chan []uint64
	opt       BlockProcessorOption
	lastPrune uint64
	ctx       context.Context
	cancel    context.CancelCauseFunc
	logx.Logger
}

func NewBlockProcessor(
	ix *indexer.Indexer,
	checker SlotSubmitter,
	blockChan <-chan *pb.SubscribeUpdateBlock,
	reorgChan <-chan []uint64,
	opt BlockProcessorOption,
) *BlockProcessor {
	if opt.RetryInterval <= 0 {
		opt.RetryInterval = 200 * time.Millisecond
	}
	if opt.PruneEverySlot == 0 {
		opt.PruneEverySlot = 100
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &BlockProcessor{
		indexer:   ix,
		journal:   ix.Journal(),
		checker:   checker,
		blockChan: blockChan,
		reorgChan: reorgChan,
		opt:       opt,
		ctx:       ctx,
		cancel:    cancel,
		Logger:    logx.WithContext(ctx).WithFields(logx.Field("service", "block_processor")),
	}
}

func (p *BlockProcessor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case slots := <-p.reorgChan:
			if err := p.revert(p.ctx, slots); err != nil {
				p.fail(err)
			}
		case block := <-p.blockChan:
			p.procBlock(block)
			if len(p.blockChan) > 10 {
				p.Debugf("block chan len:%v", len(p.blockChan))
			}
		}
	}
}

func (p *BlockProcessor) Stop() {
	p.cancel(errStopped)
}

// Done 处理器停止（正常或出错）后关闭
func (p *BlockProcessor) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Err 处理器因不可恢复错误停止时返回原因
func (p *BlockProcessor) Err() error {
	cause := context.Cause(p.ctx)
	if cause == nil || errors.Is(cause, errStopped) {
		return nil
	}
	return cause
}

func (p *BlockProcessor) fail(err error) {
	p.Errorf("[严重] 区块处理停止: %v", err)
	p.cancel(err)
}

func (p *BlockProcessor) procBlock(raw *pb.SubscribeUpdateBlock) {
	start := time.Now()
	block, err := txadapter.AdaptBlock(raw)
	if err != nil {
		p.Errorf("[严重] 区块无法解析，跳过: %v", err)
		return
	}

	if err := p.Handle(p.ctx, block); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.fail(err)
		return
	}
	p.Infof("区块处理耗时: %v, slot: %d, entries: %d", time.Since(start), block.Slot, len(block.Entries))
}

// Handle 处理一个区块：先回滚分叉上的旧区块，再带重试地应用新区块
func (p *BlockProcessor) Handle(ctx context.Context, block *feed.Block) error {
	orphaned, err := p.detectFork(ctx, block)
	if err != nil {
		return fmt.Errorf("detect fork at slot %d: %w", block.Slot, err)
	}
	if len(orphaned) > 0 {
		p.Infof("fork detected at slot %d (parent %d), reverting %v", block.Slot, block.ParentSlot, orphaned)
		if err := p.revert(ctx, orphaned); err != nil {
			return err
		}
	}

	latest, hasLatest, err := p.journal.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest slot: %w", err)
	}

	if err := p.processWithRetry(ctx, block); err != nil {
		return err
	}

	if p.checker != nil {
		from := block.Slot
		if hasLatest && latest.Slot < block.Slot {
			from = latest.Slot + 1
		}
		p.checker.Submit(from, block.Slot)
	}
	p.maybePrune(ctx, block.Slot)
	return nil
}

// detectFork 返回需要回滚的 slot（升序）：
// 1. 已处理且 slot > 新区块 parent 的区块（同 slot 同 hash 的重放除外）
// 2. parent slot 已处理但 hash 与新区块声明的 parent hash 不一致
func (p *BlockProcessor) detectFork(ctx context.Context, block *feed.Block) ([]uint64, error) {
	later, err := p.journal.SlotsAfter(ctx, block.ParentSlot)
	if err != nil {
		return nil, err
	}
	var orphaned []uint64
	for _, info := range later {
		if info.Slot == block.Slot && info.BlockHash == block.BlockHash {
			continue
		}
		orphaned = append(orphaned, info.Slot)
	}

	if block.ParentHash != "" {
		parent, found, err := p.journal.Slot(ctx, block.ParentSlot)
		if err != nil {
			return nil, err
		}
		if found && parent.BlockHash != block.ParentHash {
			p.Errorf("parent hash mismatch at slot %d: journal=%s block=%s", block.ParentSlot, parent.BlockHash, block.ParentHash)
			orphaned = append(orphaned, block.ParentSlot)
		}
	}
	slices.Sort(orphaned)
	return orphaned, nil
}

func (p *BlockProcessor) revert(ctx context.Context, slots []uint64) error {
	if len(slots) == 0 {
		return nil
	}
	if err := p.indexer.RevertSlots(ctx, slots); err != nil {
		return fmt.Errorf("revert slots %v: %w", slots, err)
	}
	return nil
}

// processWithRetry 存储类错误指数退避重试；回滚不一致与取消直接返回
func (p *BlockProcessor) processWithRetry(ctx context.Context, block *feed.Block) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opt.RetryInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := p.indexer.ProcessBlock(ctx, block)
		if err == nil {
			return nil
		}
		if errors.Is(err, reconciler.ErrReorgInconsistency) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		p.Errorf("process slot %d failed (attempt %d): %v", block.Slot, attempt, err)
		return err
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, p.opt.MaxRetries), ctx))
}

func (p *BlockProcessor) maybePrune(ctx context.Context, slot uint64) {
	if p.opt.RetainSlots == 0 || slot <= p.opt.RetainSlots || slot-p.lastPrune < p.opt.PruneEverySlot {
		return
	}
	p.lastPrune = slot
	n, err := p.journal.Prune(ctx, slot-p.opt.RetainSlots)
	if err != nil {
		p.Errorf("prune journal below %d failed: %v", slot-p.opt.RetainSlots, err)
		return
	}
	if n > 0 {
		p.Debugf("pruned %d journal slots below %d", n, slot-p.opt.RetainSlots)
	}
}
