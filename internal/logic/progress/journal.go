package progress

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Journal 记录每个 slot 产生了哪些 (实体, 出处)，分叉时据此生成 Revert 调用。
// Record 必须在应用事件之前调用（write-ahead）。
type Journal interface {
	Record(ctx context.Context, info SlotInfo, entries []Entry) error
	Entries(ctx context.Context, slot uint64) ([]Entry, error)
	Slot(ctx context.Context, slot uint64) (SlotInfo, bool, error)
	// SlotsAfter 返回 slot 严格大于 after 的已处理区块，升序
	SlotsAfter(ctx context.Context, after uint64) ([]SlotInfo, error)
	Latest(ctx context.Context) (SlotInfo, bool, error)
	Forget(ctx context.Context, slot uint64) error
	// Prune 丢弃 slot < below 的记录（已确认，不会再回滚）
	Prune(ctx context.Context, below uint64) (int, error)
}

// MemoryJournal 进程内实现，用于测试与 dry-run
type MemoryJournal struct {
	mu      sync.RWMutex
	slots   map[uint64]SlotInfo
	entries map[uint64][]Entry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		slots:   make(map[uint64]SlotInfo),
		entries: make(map[uint64][]Entry),
	}
}

func (j *MemoryJournal) Record(_ context.Context, info SlotInfo, entries []Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.slots[info.Slot] = info
	j.entries[info.Slot] = slices.Clone(entries)
	return nil
}

func (j *MemoryJournal) Entries(_ context.Context, slot uint64) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return slices.Clone(j.entries[slot]), nil
}

func (j *MemoryJournal) Slot(_ context.Context, slot uint64) (SlotInfo, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	info, ok := j.slots[slot]
	return info, ok, nil
}

func (j *MemoryJournal) SlotsAfter(_ context.Context, after uint64) ([]SlotInfo, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []SlotInfo
	for slot, info := range j.slots {
		if slot > after {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b SlotInfo) int { return cmp.Compare(a.Slot, b.Slot) })
	return out, nil
}

func (j *MemoryJournal) Latest(_ context.Context) (SlotInfo, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var (
		latest SlotInfo
		found  bool
	)
	for slot, info := range j.slots {
		if !found || slot > latest.Slot {
			latest, found = info, true
		}
	}
	return latest, found, nil
}

func (j *MemoryJournal) Forget(_ context.Context, slot uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.slots, slot)
	delete(j.entries, slot)
	return nil
}

func (j *MemoryJournal) Prune(_ context.Context, below uint64) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for slot := range j.slots {
		if slot < below {
			delete(j.slots, slot)
			delete(j.entries, slot)
			n++
		}
	}
	return n, nil
}
