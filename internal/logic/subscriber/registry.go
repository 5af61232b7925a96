package subscriber

import (
	"runtime/debug"

	"token-indexer-sol/internal/consts"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/record"
	"token-indexer-sol/internal/types"
	"token-indexer-sol/pkg/logger"
)

// Registry ProgramID → 订阅器列表的路由表
type Registry struct {
	byProgram map[types.Pubkey][]Subscriber
	programs  []types.Pubkey
}

func NewRegistry() *Registry {
	return &Registry{byProgram: make(map[types.Pubkey][]Subscriber)}
}

// Register 注册订阅器，同一程序下按注册顺序执行
func (r *Registry) Register(subs ...Subscriber) {
	for _, s := range subs {
		program := s.Descriptor().ProgramID
		if _, ok := r.byProgram[program]; !ok {
			r.programs = append(r.programs, program)
		}
		r.byProgram[program] = append(r.byProgram[program], s)
	}
}

// RegisterTokenSubscribers 注册 Token 程序（或 Token-2022）的所有订阅器
func RegisterTokenSubscribers(r *Registry, program types.Pubkey) {
	r.Register(
		NewInitializeMintSubscriber(program),
		NewInitializeAccountSubscriber(program),
		NewMintToSubscriber(program),
		NewBurnSubscriber(program),
		NewTransferSubscriber(program),
	)
}

// RegisterMetadataSubscribers 注册 Metadata 程序订阅器
func RegisterMetadataSubscribers(r *Registry, program types.Pubkey) {
	r.Register(NewCreateMetadataSubscriber(program))
}

// DefaultRegistry Token + Token-2022 + Metadata
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterTokenSubscribers(r, consts.TokenProgram)
	RegisterTokenSubscribers(r, consts.TokenProgram2022)
	RegisterMetadataSubscribers(r, consts.TokenMetaProgram)
	return r
}

// Programs 已注册的程序（注册顺序）
func (r *Registry) Programs() []types.Pubkey {
	return r.programs
}

// Subscribers 返回某程序的订阅器
func (r *Registry) Subscribers(program types.Pubkey) []Subscriber {
	return r.byProgram[program]
}

// Match 对一条指令运行该程序下的全部订阅器，结果按订阅器注册顺序排列
func (r *Registry) Match(block *feed.Block, entry *feed.LogEntry) (result []record.Record) {
	if entry == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("[subscriber::Match] panic log=%s: %+v\nstack: %s", entry.Log, rec, debug.Stack())
			result = nil
		}
	}()

	for _, s := range r.byProgram[entry.Instruction.ProgramID] {
		result = append(result, s.Match(block, entry)...)
	}
	return result
}
