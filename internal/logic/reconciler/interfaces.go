package reconciler

import (
	"context"

	"token-indexer-sol/internal/logic/core"
)

// Event 可回滚事件。Invert 返回语义相反的事件且不改回滚标记，WithReversed 返回设置了回滚标记的副本
type Event[E any] interface {
	Log() core.LogRef
	IsReversed() bool
	Type() string
	Invert() E
	WithReversed(reversed bool) E
}

// Entity 由事件折叠出的物化实体
type Entity[ID ~string, E any, T any] interface {
	EntityID() ID
	Events() []E
	WithEvents(events []E) T
}

// Reducer 纯函数：(实体, 事件) → 新实体，不得修改事件列表
type Reducer[E any, T any] interface {
	Reduce(entity T, event E) T
}

// Store 实体持久化。Get 未找到时返回 found=false；RemoveAll 对不存在的 id 幂等
type Store[ID ~string, T any] interface {
	Get(ctx context.Context, id ID) (entity T, found bool, err error)
	Save(ctx context.Context, entity T) (T, error)
	RemoveAll(ctx context.Context, ids []ID) ([]T, error)
}

// Change 实体变更通知，Causes 为本次变更的事件（回滚时为取反后的事件）
type Change[E any, T any] struct {
	Entity   T
	Causes   []E
	Reverted bool
}

type Publisher[E any, T any] interface {
	Publish(ctx context.Context, change Change[E, T]) error
}

// NopPublisher 丢弃所有变更
type NopPublisher[E any, T any] struct{}

func (NopPublisher[E, T]) Publish(context.Context, Change[E, T]) error { return nil }
