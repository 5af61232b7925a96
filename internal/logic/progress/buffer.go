package progress

import (
	"sync"
)

type slotBuffer struct {
	mu     sync.Mutex
	buffer []*SlotRecord
}

func newSlotBuffer() *slotBuffer {
	return &slotBuffer{}
}

func (b *slotBuffer) Add(record *SlotRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, record)
}

// Flush 取出全部记录；同一 slot 只保留最后一次状态
func (b *slotBuffer) Flush() []*SlotRecord {
	b.mu.Lock()
	list := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	if len(list) == 0 {
		return nil
	}
	latest := make(map[uint64]int, len(list))
	out := make([]*SlotRecord, 0, len(list))
	for _, r := range list {
		if idx, ok := latest[r.Slot]; ok {
			out[idx] = r
			continue
		}
		latest[r.Slot] = len(out)
		out = append(out, r)
	}
	return out
}

func (b *slotBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
