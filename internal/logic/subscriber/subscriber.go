package subscriber

import (
	"errors"

	"token-indexer-sol/internal/logic/decoder"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/record"
	"token-indexer-sol/internal/types"
	"token-indexer-sol/pkg/logger"
)

// Descriptor 描述订阅器关心的程序与指令种类
type Descriptor struct {
	Name      string
	ProgramID types.Pubkey
	Kinds     []decoder.Kind
}

func (d Descriptor) accepts(kind decoder.Kind) bool {
	for _, k := range d.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Subscriber 将一条指令转换为 0..n 条日志记录。
// 解码失败、指令种类不符、账户不足时返回空，不报错。
type Subscriber interface {
	Descriptor() Descriptor
	Match(block *feed.Block, entry *feed.LogEntry) []record.Record
}

// extractFunc 在解码与账户数校验通过后构造记录
type extractFunc func(ix decoder.Instruction, layout decoder.AccountLayout, entry *feed.LogEntry) (record.Record, bool)

type instructionSubscriber struct {
	desc    Descriptor
	extract extractFunc
}

func (s *instructionSubscriber) Descriptor() Descriptor {
	return s.desc
}

func (s *instructionSubscriber) Match(_ *feed.Block, entry *feed.LogEntry) []record.Record {
	if entry == nil || entry.Instruction.ProgramID != s.desc.ProgramID {
		return nil
	}

	ix, err := decoder.Decode(entry.Instruction.ProgramID, entry.Instruction.Data)
	if err != nil {
		if errors.Is(err, decoder.ErrDecode) {
			logger.Debugf("[subscriber:%s] skip %s: %v", s.desc.Name, entry.Log, err)
		}
		return nil
	}
	if !s.desc.accepts(ix.Kind()) {
		return nil
	}

	layout, ok := decoder.AccountPositions(ix.Kind())
	if !ok || len(entry.Instruction.Accounts) < layout.MinAccounts() {
		logger.Debugf("[subscriber:%s] %s: not enough accounts for %s, got=%d",
			s.desc.Name, entry.Log, ix.Kind(), len(entry.Instruction.Accounts))
		return nil
	}

	rec, ok := s.extract(ix, layout, entry)
	if !ok {
		return nil
	}
	return []record.Record{rec}
}
