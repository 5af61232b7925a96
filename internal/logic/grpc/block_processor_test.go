package grpc

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/consts"
	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/feed"
	"token-indexer-sol/internal/logic/indexer"
	"token-indexer-sol/internal/logic/progress"
	"token-indexer-sol/internal/logic/reconciler"
	"token-indexer-sol/internal/logic/subscriber"
	"token-indexer-sol/internal/store/memory"
	"token-indexer-sol/internal/types"
)

func pk(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	p[31] = b
	return p
}

var (
	mint    = pk(1)
	auth    = pk(2)
	account = pk(3)
)

// mintBlock 构造一个向 account 铸造 amount 的区块
func mintBlock(slot, parent uint64, hash, parentHash string, amount uint64) *feed.Block {
	data := make([]byte, 9)
	data[0] = byte(sdktoken.InstructionMintTo)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return &feed.Block{
		Slot:       slot,
		ParentSlot: parent,
		BlockHash:  hash,
		ParentHash: parentHash,
		Entries: []*feed.LogEntry{{
			Log: core.LogRef{Slot: slot, BlockHash: hash, TxSignature: "sig-" + hash, ProgramID: consts.TokenProgramStr},
			Instruction: feed.Instruction{
				ProgramID: consts.TokenProgram,
				Accounts:  []types.Pubkey{mint, account, auth},
				Data:      data,
			},
		}},
	}
}

type recordingChecker struct {
	mu     sync.Mutex
	ranges [][2]uint64
}

func (c *recordingChecker) Submit(from, to uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ranges = append(c.ranges, [2]uint64{from, to})
}

// failingStore 前 failures 次 Save 返回错误
type failingStore struct {
	*memory.Store[domain.BalanceID, domain.Balance]
	mu       sync.Mutex
	failures int
}

var errStoreDown = errors.New("store down")

func (s *failingStore) Save(ctx context.Context, b domain.Balance) (domain.Balance, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return domain.Balance{}, errStoreDown
	}
	s.mu.Unlock()
	return s.Store.Save(ctx, b)
}

type processorFixture struct {
	p       *BlockProcessor
	ix      *indexer.Indexer
	journal *progress.MemoryJournal
	checker *recordingChecker
	store   *failingStore
}

func newProcessor(opt BlockProcessorOption) *processorFixture {
	f := &processorFixture{
		journal: progress.NewMemoryJournal(),
		checker: &recordingChecker{},
		store:   &failingStore{Store: memory.NewStore[domain.BalanceID, domain.Balance]()},
	}
	f.ix = indexer.New(
		subscriber.DefaultRegistry(),
		indexer.NewBalanceReconciler(f.store, nil),
		indexer.NewTokenReconciler(memory.NewStore[domain.TokenID, domain.Token](), nil),
		f.journal,
		2,
	)
	if opt.RetryInterval == 0 {
		opt.RetryInterval = time.Millisecond
	}
	f.p = NewBlockProcessor(f.ix, f.checker, nil, nil, opt)
	return f
}

func (f *processorFixture) balance(t *testing.T) int64 {
	b, err := f.ix.Balances().Get(context.Background(), domain.BalanceID(account.String()))
	require.NoError(t, err)
	return b.Value
}

func TestBlockProcessor_Linear(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{})

	require.NoError(t, f.p.Handle(ctx, mintBlock(10, 9, "h10", "h9", 100)))
	require.NoError(t, f.p.Handle(ctx, mintBlock(11, 10, "h11", "h10", 20)))
	// 跳过的 slot 一并提交复核
	require.NoError(t, f.p.Handle(ctx, mintBlock(14, 11, "h14", "h11", 3)))

	assert.Equal(t, int64(123), f.balance(t))
	assert.Equal(t, [][2]uint64{{10, 10}, {11, 11}, {12, 14}}, f.checker.ranges)
}

func TestBlockProcessor_ForkBySlot(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{})

	require.NoError(t, f.p.Handle(ctx, mintBlock(10, 9, "h10", "", 100)))
	require.NoError(t, f.p.Handle(ctx, mintBlock(11, 10, "h11", "h10", 20)))
	require.NoError(t, f.p.Handle(ctx, mintBlock(12, 11, "h12", "h11", 5)))

	// 新分叉从 10 直接接到 12'
	require.NoError(t, f.p.Handle(ctx, mintBlock(12, 10, "h12b", "h10", 7)))
	assert.Equal(t, int64(107), f.balance(t))

	_, found, err := f.journal.Slot(ctx, 11)
	require.NoError(t, err)
	assert.False(t, found)
	info, found, err := f.journal.Slot(ctx, 12)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "h12b", info.BlockHash)
}

func TestBlockProcessor_ReplayIsNotFork(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{})

	b := mintBlock(10, 9, "h10", "", 100)
	require.NoError(t, f.p.Handle(ctx, b))
	require.NoError(t, f.p.Handle(ctx, b))
	assert.Equal(t, int64(100), f.balance(t))
}

func TestBlockProcessor_ParentHashMismatch(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{})

	require.NoError(t, f.p.Handle(ctx, mintBlock(10, 9, "h10", "", 100)))
	require.NoError(t, f.p.Handle(ctx, mintBlock(11, 10, "h11", "h10", 20)))

	// 12 声明的 parent 是另一个 11
	require.NoError(t, f.p.Handle(ctx, mintBlock(12, 11, "h12", "h11b", 1)))
	assert.Equal(t, int64(101), f.balance(t))
}

func TestBlockProcessor_RetryOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{MaxRetries: 5})
	f.store.failures = 2

	require.NoError(t, f.p.Handle(ctx, mintBlock(10, 9, "h10", "", 100)))
	assert.Equal(t, int64(100), f.balance(t))
}

func TestBlockProcessor_RetryExhausted(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{MaxRetries: 1})
	f.store.failures = 10

	err := f.p.Handle(ctx, mintBlock(10, 9, "h10", "", 100))
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, f.checker.ranges)
}

func TestBlockProcessor_InconsistencyIsFatal(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{MaxRetries: 5})

	// journal 指向从未应用的实体
	require.NoError(t, f.journal.Record(ctx, progress.SlotInfo{Slot: 11, BlockHash: "h11"}, []progress.Entry{
		{Kind: progress.KindBalance, ID: "ghost", Log: core.LogRef{Slot: 11}},
	}))
	err := f.p.Handle(ctx, mintBlock(11, 10, "h11b", "", 1))
	require.ErrorIs(t, err, reconciler.ErrReorgInconsistency)
}

func TestBlockProcessor_Prune(t *testing.T) {
	ctx := context.Background()
	f := newProcessor(BlockProcessorOption{RetainSlots: 2, PruneEverySlot: 1})

	for slot := uint64(10); slot <= 14; slot++ {
		require.NoError(t, f.p.Handle(ctx, mintBlock(slot, slot-1, "", "", 1)))
	}
	slots, err := f.journal.SlotsAfter(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, uint64(12), slots[0].Slot)
}

func TestBlockProcessor_StartStop(t *testing.T) {
	f := newProcessor(BlockProcessorOption{})
	reorgs := make(chan []uint64, 1)
	f.p.reorgChan = reorgs

	require.NoError(t, f.p.Handle(context.Background(), mintBlock(10, 9, "h10", "", 100)))

	done := make(chan struct{})
	go func() {
		f.p.Start()
		close(done)
	}()
	reorgs <- []uint64{10}
	assert.Eventually(t, func() bool { return f.balance(t) == 0 }, time.Second, 5*time.Millisecond)

	f.p.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
	assert.NoError(t, f.p.Err())
}
