package progress

import (
	"context"
	"time"

	"token-indexer-sol/pkg/logger"
)

// Manager 包装 Journal：journal 负责回滚所需的明细，
// 同时把 slot 的处理 / 回滚状态缓冲后批量写入 DB（db 为 nil 时只走 journal）
type Manager struct {
	Journal
	db     *DBProgressStore
	buffer *slotBuffer
}

func NewManager(journal Journal, db *DBProgressStore) *Manager {
	return &Manager{
		Journal: journal,
		db:      db,
		buffer:  newSlotBuffer(),
	}
}

func (pm *Manager) Record(ctx context.Context, info SlotInfo, entries []Entry) error {
	if err := pm.Journal.Record(ctx, info, entries); err != nil {
		return err
	}
	if pm.db != nil {
		pm.buffer.Add(&SlotRecord{Slot: info.Slot, BlockHash: info.BlockHash, BlockTime: info.BlockTime, Status: SlotProcessed})
	}
	return nil
}

func (pm *Manager) Forget(ctx context.Context, slot uint64) error {
	info, _, err := pm.Journal.Slot(ctx, slot)
	if err != nil {
		return err
	}
	if err := pm.Journal.Forget(ctx, slot); err != nil {
		return err
	}
	if pm.db != nil {
		pm.buffer.Add(&SlotRecord{Slot: slot, BlockHash: info.BlockHash, BlockTime: info.BlockTime, Status: SlotReverted})
	}
	return nil
}

// SlotStatus journal 中存在即视为已处理；否则查询 DB 中的历史状态
func (pm *Manager) SlotStatus(ctx context.Context, slot uint64) (SlotStatus, error) {
	_, found, err := pm.Journal.Slot(ctx, slot)
	if err != nil {
		return SlotUnknown, err
	}
	if found {
		return SlotProcessed, nil
	}
	if pm.db == nil {
		return SlotUnknown, nil
	}
	return pm.db.CheckSlotStatus(ctx, slot)
}

// Flush 把缓冲的 slot 状态写入 DB
func (pm *Manager) Flush(ctx context.Context) error {
	if pm.db == nil {
		return nil
	}
	list := pm.buffer.Flush()
	if len(list) == 0 {
		return nil
	}
	return pm.db.BatchUpsertSlots(ctx, list)
}

// StartFlushLoop 启动后台定时 flush，退出前再 flush 一次
func (pm *Manager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	if pm.db == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := pm.Flush(flushCtx); err != nil {
				logger.Errorf("[progress] final flush failed: %v", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := pm.Flush(ctx); err != nil {
				// buffer 已清空，下次 Record 会重新写入最新状态
				logger.Errorf("[progress] flush failed: %v", err)
			}
		}
	}
}

// StartGCLoop 启动后台 GC：清理 journal 与 DB 中已确认的历史 slot
func (pm *Manager) StartGCLoop(ctx context.Context, interval time.Duration, retainSlots uint64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.gc(ctx, retainSlots)
		}
	}
}

func (pm *Manager) gc(ctx context.Context, retainSlots uint64) {
	latest, ok, err := pm.Journal.Latest(ctx)
	if err != nil {
		logger.Errorf("[progress GC] latest slot: %v", err)
		return
	}
	if ok && latest.Slot > retainSlots {
		n, err := pm.Journal.Prune(ctx, latest.Slot-retainSlots)
		if err != nil {
			logger.Errorf("[progress GC] prune journal: %v", err)
		} else if n > 0 {
			logger.Debugf("[progress GC] pruned %d journal slots below %d", n, latest.Slot-retainSlots)
		}
	}
	if pm.db != nil {
		if err := pm.db.DeleteOldSlots(ctx, retainSlots); err != nil {
			logger.Errorf("[progress GC] %v", err)
		}
	}
}
