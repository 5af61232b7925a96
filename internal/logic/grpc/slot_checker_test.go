package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/logic/progress"
)

type fakeLister struct {
	confirmed []uint64
	err       error
	calls     int
}

func (l *fakeLister) GetBlocks(_ context.Context, from, to uint64) ([]uint64, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	var out []uint64
	for _, s := range l.confirmed {
		if s >= from && s <= to {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestMergeRanges(t *testing.T) {
	now := time.Now()
	got := mergeRanges([]SlotRange{
		{From: 20, To: 25, SubmitAt: now},
		{From: 10, To: 12, SubmitAt: now},
		{From: 13, To: 15, SubmitAt: now},
		{From: 11, To: 11, SubmitAt: now},
	})
	require.Len(t, got, 2)
	assert.Equal(t, [2]uint64{10, 15}, [2]uint64{got[0].From, got[0].To})
	assert.Equal(t, [2]uint64{20, 25}, [2]uint64{got[1].From, got[1].To})

	big := mergeRanges([]SlotRange{{From: 1, To: 2*maxRangeSize + 5}})
	require.Len(t, big, 3)
	for _, r := range big {
		assert.LessOrEqual(t, r.To-r.From+1, uint64(maxRangeSize))
	}
	assert.Nil(t, mergeRanges(nil))
}

func TestDiffSlots(t *testing.T) {
	orphaned, missing := diffSlots([]uint64{12, 10, 11}, []uint64{10, 12, 13})
	assert.Equal(t, []uint64{11}, orphaned)
	assert.Equal(t, []uint64{13}, missing)
}

func TestSplitReady(t *testing.T) {
	now := time.Now()
	ready, pending := splitReady([]SlotRange{
		{From: 1, To: 1, SubmitAt: now.Add(-time.Minute)},
		{From: 2, To: 2, SubmitAt: now},
	}, now, 30*time.Second)
	require.Len(t, ready, 1)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(1), ready[0].From)
}

func TestSlotChecker_FindsOrphans(t *testing.T) {
	ctx := context.Background()
	journal := progress.NewMemoryJournal()
	for _, slot := range []uint64{100, 101, 103} {
		require.NoError(t, journal.Record(ctx, progress.SlotInfo{Slot: slot}, nil))
	}
	reorgs := make(chan []uint64, 1)
	lister := &fakeLister{confirmed: []uint64{100, 102, 103}}
	c := NewSlotChecker(lister, journal, reorgs, time.Second, time.Second)

	orphaned := c.checkSlotRanges(ctx, []SlotRange{{From: 100, To: 103}})
	assert.Equal(t, []uint64{101}, orphaned)
	assert.Equal(t, []uint64{101}, <-reorgs)
}

func TestSlotChecker_RpcFailure(t *testing.T) {
	ctx := context.Background()
	journal := progress.NewMemoryJournal()
	require.NoError(t, journal.Record(ctx, progress.SlotInfo{Slot: 5}, nil))

	lister := &fakeLister{err: errors.New("rpc down")}
	c := NewSlotChecker(lister, journal, nil, time.Second, time.Second)
	assert.Empty(t, c.checkSlotRanges(ctx, []SlotRange{{From: 5, To: 5}}))
	assert.Equal(t, 3, lister.calls)
}

func TestSlotChecker_Submit(t *testing.T) {
	c := NewSlotChecker(&fakeLister{}, progress.NewMemoryJournal(), nil, 0, 0)
	c.Submit(5, 4)
	assert.Empty(t, c.rangeCh)
	c.Submit(4, 5)
	assert.Len(t, c.rangeCh, 1)
}
