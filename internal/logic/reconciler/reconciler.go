package reconciler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zeromicro/go-zero/core/syncx"

	"token-indexer-sol/internal/logic/core"
)

// ErrReorgInconsistency 回滚了一个从未应用过的出处，说明日志流与存储状态不一致，调用方应停止处理
var ErrReorgInconsistency = errors.New("reorg inconsistency")

// ErrUnpublished 变更已保存但通知失败，同一 id 的下一次调用会补发
var ErrUnpublished = errors.New("change saved but not published")

// Reconciler 负责把事件应用到实体并保存、通知。
// 同一 id 上的 ApplyNew / Revert 互斥执行，不同 id 之间完全并发。
//
// 事件列表按 (LogRef, Type) 有序；回滚的事件保留在列表中并打上 reversed 标记，
// 实体数值始终等于从 empty(id) 开始折叠所有未回滚事件的结果。
type Reconciler[ID ~string, E Event[E], T Entity[ID, E, T]] struct {
	name      string
	store     Store[ID, T]
	publisher Publisher[E, T]
	reducer   Reducer[E, T]
	empty     func(ID) T
	sections  syncx.LockedCalls

	// 已保存但通知失败的变更，同一 id 的下一次调用先补发
	pendingMu sync.Mutex
	pending   map[ID]Change[E, T]
}

func New[ID ~string, E Event[E], T Entity[ID, E, T]](
	name string,
	store Store[ID, T],
	publisher Publisher[E, T],
	reducer Reducer[E, T],
	empty func(ID) T,
) *Reconciler[ID, E, T] {
	if publisher == nil {
		publisher = NopPublisher[E, T]{}
	}
	return &Reconciler[ID, E, T]{
		name:      name,
		store:     store,
		publisher: publisher,
		reducer:   reducer,
		empty:     empty,
		sections:  syncx.NewLockedCalls(),
		pending:   make(map[ID]Change[E, T]),
	}
}

func (r *Reconciler[ID, E, T]) Name() string {
	return r.name
}

// Get 读取实体，不存在时返回 empty(id)
func (r *Reconciler[ID, E, T]) Get(ctx context.Context, id ID) (T, error) {
	current, found, err := r.store.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s %s: %w", r.name, id, err)
	}
	if !found {
		return r.empty(id), nil
	}
	return current, nil
}

// ApplyNew 应用一条新事件。
// 重复投递（同出处同类型且未回滚）为空操作；已回滚的同一事件重新激活；
// 追加在末尾时增量折叠，插入中间时整体重算。
func (r *Reconciler[ID, E, T]) ApplyNew(ctx context.Context, id ID, event E) (T, error) {
	return r.exclusive(ctx, id, func() (T, error) {
		return r.applyNew(ctx, id, event)
	})
}

// Revert 回滚某出处在该实体上产生的全部事件
func (r *Reconciler[ID, E, T]) Revert(ctx context.Context, id ID, log core.LogRef) (T, error) {
	return r.exclusive(ctx, id, func() (T, error) {
		return r.revert(ctx, id, log)
	})
}

func (r *Reconciler[ID, E, T]) exclusive(ctx context.Context, id ID, fn func() (T, error)) (T, error) {
	v, err := r.sections.Do(string(id), func() (any, error) {
		if err := r.flushPending(ctx, id); err != nil {
			var zero T
			return zero, err
		}
		return fn()
	})
	entity, _ := v.(T)
	return entity, err
}

func (r *Reconciler[ID, E, T]) applyNew(ctx context.Context, id ID, event E) (T, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return current, err
	}

	events := current.Events()
	pos, found := slices.BinarySearchFunc(events, event, compareEvents[E])
	if found {
		if !events[pos].IsReversed() {
			return current, nil
		}
		// 分叉切回：同一事件再次成为规范链的一部分
		updated := slices.Clone(events)
		updated[pos] = updated[pos].WithReversed(false)
		return r.commit(ctx, r.refold(id, updated), Change[E, T]{Causes: []E{updated[pos]}})
	}

	fresh := event.WithReversed(false)
	updated := slices.Insert(slices.Clone(events), pos, fresh)

	var next T
	if pos == len(events) {
		next = r.reducer.Reduce(current, fresh).WithEvents(updated)
	} else {
		next = r.refold(id, updated)
	}
	return r.commit(ctx, next, Change[E, T]{Causes: []E{fresh}})
}

func (r *Reconciler[ID, E, T]) revert(ctx context.Context, id ID, log core.LogRef) (T, error) {
	var zero T
	current, found, err := r.store.Get(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", r.name, id, err)
	}
	if !found {
		return zero, fmt.Errorf("%w: %s %s not found, revert %s", ErrReorgInconsistency, r.name, id, log)
	}

	events := current.Events()
	start, _ := slices.BinarySearchFunc(events, log, func(e E, target core.LogRef) int {
		return e.Log().Compare(target)
	})

	var (
		updated []E
		causes  []E
		matched bool
	)
	for i := start; i < len(events) && events[i].Log() == log; i++ {
		matched = true
		if events[i].IsReversed() {
			continue
		}
		if updated == nil {
			updated = slices.Clone(events)
		}
		updated[i] = events[i].WithReversed(true)
		causes = append(causes, events[i].Invert().WithReversed(true))
	}

	if !matched {
		return zero, fmt.Errorf("%w: %s %s has no event at %s", ErrReorgInconsistency, r.name, id, log)
	}
	if len(causes) == 0 {
		return current, nil
	}
	return r.commit(ctx, r.refold(id, updated), Change[E, T]{Causes: causes, Reverted: true})
}

// refold 从 empty(id) 开始折叠所有未回滚事件
func (r *Reconciler[ID, E, T]) refold(id ID, events []E) T {
	state := r.empty(id)
	for _, e := range events {
		if !e.IsReversed() {
			state = r.reducer.Reduce(state, e)
		}
	}
	return state.WithEvents(events)
}

// commit 先保存再通知；保存失败不通知
func (r *Reconciler[ID, E, T]) commit(ctx context.Context, next T, change Change[E, T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	saved, err := r.store.Save(ctx, next)
	if err != nil {
		return zero, fmt.Errorf("save %s %s: %w", r.name, next.EntityID(), err)
	}

	change.Entity = saved
	if err := r.publisher.Publish(ctx, change); err != nil {
		r.pendingMu.Lock()
		r.pending[saved.EntityID()] = change
		r.pendingMu.Unlock()
		return saved, fmt.Errorf("publish %s %s: %w: %w", r.name, saved.EntityID(), ErrUnpublished, err)
	}
	return saved, nil
}

// flushPending 补发该 id 上次保存成功但通知失败的变更。
// 重试时事件已在存储中，会被当作重复跳过，只能靠这里保证变更至少发送一次
func (r *Reconciler[ID, E, T]) flushPending(ctx context.Context, id ID) error {
	r.pendingMu.Lock()
	change, ok := r.pending[id]
	r.pendingMu.Unlock()
	if !ok {
		return nil
	}
	if err := r.publisher.Publish(ctx, change); err != nil {
		return fmt.Errorf("republish %s %s: %w", r.name, id, err)
	}
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
	return nil
}

func compareEvents[E Event[E]](a, b E) int {
	if c := a.Log().Compare(b.Log()); c != 0 {
		return c
	}
	return strings.Compare(a.Type(), b.Type())
}
