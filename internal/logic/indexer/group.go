package indexer

import (
	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/progress"
)

// entityGroup 同一实体在一个区块内的全部事件（保持日志流顺序）
type entityGroup struct {
	kind    progress.EntityKind
	id      string
	balance []domain.BalanceEvent
	token   []domain.TokenEvent
	logs    []core.LogRef // 回滚时使用，已按回滚顺序排列
	applied []core.LogRef // 本次已落库的出处
}

func (g *entityGroup) markApplied(log core.LogRef) {
	if n := len(g.applied); n > 0 && g.applied[n-1] == log {
		return
	}
	g.applied = append(g.applied, log)
}

func (g *entityGroup) key() string {
	return g.kind.String() + ":" + g.id
}

type groupKey struct {
	kind progress.EntityKind
	id   string
}

// groupEvents 按实体分组，分组顺序为实体首次出现的顺序
func groupEvents(events []domain.Event) []*entityGroup {
	index := make(map[groupKey]*entityGroup)
	var groups []*entityGroup

	get := func(kind progress.EntityKind, id string) *entityGroup {
		k := groupKey{kind: kind, id: id}
		g, ok := index[k]
		if !ok {
			g = &entityGroup{kind: kind, id: id}
			index[k] = g
			groups = append(groups, g)
		}
		return g
	}

	for _, e := range events {
		switch ev := e.(type) {
		case domain.BalanceEvent:
			g := get(progress.KindBalance, string(ev.BalanceID()))
			g.balance = append(g.balance, ev)
		case domain.TokenEvent:
			g := get(progress.KindToken, string(ev.TokenID()))
			g.token = append(g.token, ev)
		}
	}
	return groups
}

// journalEntries 每个 (实体, 出处) 只记录一次
func journalEntries(groups []*entityGroup) []progress.Entry {
	return collectEntries(groups, func(g *entityGroup) []core.LogRef {
		logs := make([]core.LogRef, 0, len(g.balance)+len(g.token))
		for _, e := range g.balance {
			logs = append(logs, e.Log())
		}
		for _, e := range g.token {
			logs = append(logs, e.Log())
		}
		return logs
	})
}

// appliedEntries 只包含已落库的出处，区块部分失败时用它覆盖 journal
func appliedEntries(groups []*entityGroup) []progress.Entry {
	return collectEntries(groups, func(g *entityGroup) []core.LogRef { return g.applied })
}

func collectEntries(groups []*entityGroup, logsOf func(*entityGroup) []core.LogRef) []progress.Entry {
	var entries []progress.Entry
	for _, g := range groups {
		seen := make(map[core.LogRef]struct{})
		for _, log := range logsOf(g) {
			if _, ok := seen[log]; ok {
				continue
			}
			seen[log] = struct{}{}
			entries = append(entries, progress.Entry{Kind: g.kind, ID: g.id, Log: log})
		}
	}
	return entries
}

// revertGroups 把 journal 条目转换为回滚分组，每个实体的出处按应用顺序的逆序排列
func revertGroups(entries []progress.Entry) []*entityGroup {
	index := make(map[groupKey]*entityGroup)
	var groups []*entityGroup
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		k := groupKey{kind: e.Kind, id: e.ID}
		g, ok := index[k]
		if !ok {
			g = &entityGroup{kind: e.Kind, id: e.ID}
			index[k] = g
			groups = append(groups, g)
		}
		g.logs = append(g.logs, e.Log)
	}
	return groups
}
