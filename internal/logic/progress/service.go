package progress

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/threading"
)

// LoopService 以 go-zero Service 的形式运行 flush 与 GC 循环
type LoopService struct {
	pm            *Manager
	flushInterval time.Duration
	gcInterval    time.Duration
	retainSlots   uint64
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewLoopService(pm *Manager, flushInterval, gcInterval time.Duration, retainSlots uint64) *LoopService {
	ctx, cancel := context.WithCancel(context.Background())
	return &LoopService{
		pm:            pm,
		flushInterval: flushInterval,
		gcInterval:    gcInterval,
		retainSlots:   retainSlots,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *LoopService) Start() {
	group := threading.NewRoutineGroup()
	if s.flushInterval > 0 {
		group.RunSafe(func() { s.pm.StartFlushLoop(s.ctx, s.flushInterval) })
	}
	if s.gcInterval > 0 && s.retainSlots > 0 {
		group.RunSafe(func() { s.pm.StartGCLoop(s.ctx, s.gcInterval, s.retainSlots) })
	}
	group.Wait()
}

func (s *LoopService) Stop() {
	s.cancel()
}
