package grpc

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"

	"token-indexer-sol/internal/logic/progress"
	"token-indexer-sol/pkg/logger"
)

const maxRangeSize = 10000 // getBlocks 单次查询上限

type SlotRange struct {
	From     uint64
	To       uint64
	SubmitAt time.Time
}

// BlockLister 返回 [from, to] 内已确认的 slot
type BlockLister interface {
	GetBlocks(ctx context.Context, from, to uint64) ([]uint64, error)
}

type rpcBlockLister struct {
	client *rpc.RpcClient
}

func NewRpcBlockLister(endpoint string) BlockLister {
	client := rpc.NewRpcClient(endpoint)
	return &rpcBlockLister{client: &client}
}

func (l *rpcBlockLister) GetBlocks(ctx context.Context, from, to uint64) ([]uint64, error) {
	resp, err := l.client.GetBlocks(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// SlotChecker 延迟复核已处理的 slot：
// 已处理但未被确认的 slot 视为孤块，交给区块处理器回滚；已确认但未处理的 slot 记录为疑似漏扫。
type SlotChecker struct {
	lister   BlockLister
	journal  progress.Journal
	rangeCh  chan SlotRange
	reorgCh  chan<- []uint64
	delay    time.Duration
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewSlotChecker(lister BlockLister, journal progress.Journal, reorgCh chan<- []uint64, delay, interval time.Duration) *SlotChecker {
	ctx, cancel := context.WithCancel(context.Background())
	if delay <= 0 {
		delay = 60 * time.Second
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &SlotChecker{
		lister:   lister,
		journal:  journal,
		rangeCh:  make(chan SlotRange, 300),
		reorgCh:  reorgCh,
		delay:    delay,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *SlotChecker) Start() {
	s.run()
}

func (s *SlotChecker) Stop() {
	s.cancel()
}

// Submit 提交闭区间 [from, to] 等待复核，通道满时丢弃
func (s *SlotChecker) Submit(from, to uint64) {
	if from > to {
		logger.Warnf("[SlotChecker] invalid slot range: from (%d) > to (%d)", from, to)
		return
	}
	select {
	case s.rangeCh <- SlotRange{From: from, To: to, SubmitAt: time.Now()}:
	default:
		logger.Warnf("[SlotChecker] slot range channel full, dropped: [%d, %d]", from, to)
	}
}

func (s *SlotChecker) run() {
	const maxPendingRanges = 200

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var pending []SlotRange
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("[SlotChecker] stopped")
			return

		case r := <-s.rangeCh:
			if len(pending) >= maxPendingRanges {
				logger.Warnf("[SlotChecker] too many pending ranges (%d), drop [%d, %d]", len(pending), r.From, r.To)
				continue
			}
			pending = append(pending, r)

		case <-ticker.C:
			drainTicker(ticker)
			var ready []SlotRange
			ready, pending = splitReady(pending, time.Now(), s.delay)
			if len(ready) > 0 {
				// 串行执行，防止 goroutine 累积
				s.checkSlotRanges(s.ctx, ready)
			}
		}
	}
}

func drainTicker(t *time.Ticker) {
	for {
		select {
		case <-t.C:
		default:
			return
		}
	}
}

func splitReady(ranges []SlotRange, now time.Time, delay time.Duration) (ready, pending []SlotRange) {
	for _, r := range ranges {
		if now.Sub(r.SubmitAt) >= delay {
			ready = append(ready, r)
		} else {
			pending = append(pending, r)
		}
	}
	return ready, pending
}

// checkSlotRanges 返回发现的孤块 slot（升序），并投递到 reorg 通道
func (s *SlotChecker) checkSlotRanges(ctx context.Context, ranges []SlotRange) []uint64 {
	var orphaned []uint64
	for _, r := range mergeRanges(ranges) {
		if ctx.Err() != nil {
			return orphaned
		}

		confirmed, err := s.getBlocksWithRetry(ctx, r.From, r.To, 3)
		if err != nil {
			logger.Warnf("[SlotChecker] getBlocks [%d, %d] failed after retries: %v", r.From, r.To, err)
			continue
		}
		processed, err := s.processedSlots(ctx, r.From, r.To)
		if err != nil {
			logger.Warnf("[SlotChecker] load journal [%d, %d] failed: %v", r.From, r.To, err)
			continue
		}

		o, missing := diffSlots(processed, confirmed)
		for _, slot := range missing {
			s.reportMissing(ctx, slot)
		}
		orphaned = append(orphaned, o...)
	}

	if len(orphaned) > 0 && s.reorgCh != nil {
		logger.Warnf("[SlotChecker] %d orphaned slots: %v", len(orphaned), orphaned)
		select {
		case s.reorgCh <- orphaned:
		case <-ctx.Done():
		}
	}
	return orphaned
}

// slotStatusReader 由 progress.Manager 实现，可区分被回滚的 slot 与从未处理的 slot
type slotStatusReader interface {
	SlotStatus(ctx context.Context, slot uint64) (progress.SlotStatus, error)
}

func (s *SlotChecker) reportMissing(ctx context.Context, slot uint64) {
	reader, ok := s.journal.(slotStatusReader)
	if !ok {
		logger.Errorf("[SlotChecker] slot %d is confirmed but not processed，疑似漏扫", slot)
		return
	}
	status, err := reader.SlotStatus(ctx, slot)
	if err != nil {
		logger.Warnf("[SlotChecker] load status of slot %d failed: %v", slot, err)
	}
	if status == progress.SlotReverted {
		logger.Errorf("[SlotChecker] slot %d was reverted as fork but is confirmed", slot)
		return
	}
	logger.Errorf("[SlotChecker] slot %d is confirmed but not processed，疑似漏扫", slot)
}

func (s *SlotChecker) processedSlots(ctx context.Context, from, to uint64) ([]uint64, error) {
	after := uint64(0)
	if from > 0 {
		after = from - 1
	}
	infos, err := s.journal.SlotsAfter(ctx, after)
	if err != nil {
		return nil, err
	}
	var slots []uint64
	for _, info := range infos {
		if info.Slot >= from && info.Slot <= to {
			slots = append(slots, info.Slot)
		}
	}
	return slots, nil
}

// diffSlots 两个输入均视为无序集合；返回值升序
func diffSlots(processed, confirmed []uint64) (orphaned, missing []uint64) {
	confirmedSet := make(map[uint64]struct{}, len(confirmed))
	for _, slot := range confirmed {
		confirmedSet[slot] = struct{}{}
	}
	processedSet := make(map[uint64]struct{}, len(processed))
	for _, slot := range processed {
		processedSet[slot] = struct{}{}
		if _, ok := confirmedSet[slot]; !ok {
			orphaned = append(orphaned, slot)
		}
	}
	for _, slot := range confirmed {
		if _, ok := processedSet[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	slices.Sort(orphaned)
	slices.Sort(missing)
	return orphaned, missing
}

func (s *SlotChecker) getBlocksWithRetry(ctx context.Context, from, to uint64, maxRetries int) (_ []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[SlotChecker] panic during getBlocks: %v", r)
			err = context.Canceled
		}
	}()

	delay := 300 * time.Millisecond
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
		blocks, err := s.lister.GetBlocks(callCtx, from, to)
		cancel()
		if err == nil {
			return blocks, nil
		}
		if attempt >= maxRetries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// mergeRanges 拆分并合并 SlotRange：每段长度不超过 maxRangeSize，按 From 升序，相邻或重叠的段尽量合并
func mergeRanges(ranges []SlotRange) []SlotRange {
	if len(ranges) == 0 {
		return nil
	}

	split := make([]SlotRange, 0, len(ranges))
	for _, r := range ranges {
		for from := r.From; ; {
			maxTo := from + maxRangeSize - 1
			if r.To <= maxTo {
				split = append(split, SlotRange{From: from, To: r.To, SubmitAt: r.SubmitAt})
				break
			}
			split = append(split, SlotRange{From: from, To: maxTo, SubmitAt: r.SubmitAt})
			from = maxTo + 1
		}
	}

	slices.SortFunc(split, func(a, b SlotRange) int {
		if a.From != b.From {
			return cmp.Compare(a.From, b.From)
		}
		return cmp.Compare(a.To, b.To)
	})

	merged := []SlotRange{split[0]}
	for _, r := range split[1:] {
		last := &merged[len(merged)-1]
		if r.From > last.To+1 {
			merged = append(merged, r)
			continue
		}
		if r.To <= last.To {
			continue
		}
		maxTo := last.From + maxRangeSize - 1
		if r.To <= maxTo {
			last.To = r.To
		} else {
			last.To = maxTo
			merged = append(merged, SlotRange{From: maxTo + 1, To: r.To, SubmitAt: r.SubmitAt})
		}
	}
	return merged
}
