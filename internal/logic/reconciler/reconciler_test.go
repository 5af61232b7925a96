package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/reducer"
	"token-indexer-sol/internal/store/memory"
)

type balanceChange = Change[domain.BalanceEvent, domain.Balance]

type recordingPublisher struct {
	mu      sync.Mutex
	changes []balanceChange
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, c balanceChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes)
}

// flakyStore 在 failSaves > 0 时让 Save 失败
type flakyStore struct {
	*memory.Store[domain.BalanceID, domain.Balance]
	mu        sync.Mutex
	failSaves int
}

var errStoreDown = errors.New("store down")

func (s *flakyStore) Save(ctx context.Context, b domain.Balance) (domain.Balance, error) {
	s.mu.Lock()
	if s.failSaves > 0 {
		s.failSaves--
		s.mu.Unlock()
		return domain.Balance{}, errStoreDown
	}
	s.mu.Unlock()
	return s.Store.Save(ctx, b)
}

type fixture struct {
	store *flakyStore
	pub   *recordingPublisher
	rec   *Reconciler[domain.BalanceID, domain.BalanceEvent, domain.Balance]
}

func newFixture() *fixture {
	store := &flakyStore{Store: memory.NewStore[domain.BalanceID, domain.Balance]()}
	pub := &recordingPublisher{}
	return &fixture{
		store: store,
		pub:   pub,
		rec: New[domain.BalanceID, domain.BalanceEvent, domain.Balance](
			"balance", store, pub, reducer.BalanceReducer{}, domain.EmptyBalance),
	}
}

const acc = domain.BalanceID("acc")

func ref(slot uint64, tx uint32) core.LogRef {
	return core.LogRef{Slot: slot, BlockHash: "h", TxIndex: tx, TxSignature: "sig", ProgramID: "p"}
}

func income(slot uint64, tx uint32, amount uint64) domain.BalanceEvent {
	return domain.BalanceIncomeEvent{Account: acc, Amount: amount, LogRef: ref(slot, tx)}
}

func outcome(slot uint64, tx uint32, amount uint64) domain.BalanceEvent {
	return domain.BalanceOutcomeEvent{Account: acc, Amount: amount, LogRef: ref(slot, tx)}
}

// 不变量：value == fold(未回滚事件)
func assertConsistent(t *testing.T, b domain.Balance) {
	t.Helper()
	expected := domain.EmptyBalance(b.Account)
	for _, e := range b.RevertableEvents {
		if !e.IsReversed() {
			expected = reducer.BalanceReducer{}.Reduce(expected, e)
		}
	}
	assert.Equal(t, expected.Value, b.Value)
	for i := 1; i < len(b.RevertableEvents); i++ {
		assert.LessOrEqual(t, compareEvents(b.RevertableEvents[i-1], b.RevertableEvents[i]), 0)
	}
}

func TestApplyNew_Basic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.Value)

	b, err = f.rec.ApplyNew(ctx, acc, outcome(1, 1, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(70), b.Value)
	assert.Len(t, b.RevertableEvents, 2)
	assertConsistent(t, b)

	require.Equal(t, 2, f.pub.count())
	assert.Equal(t, int64(70), f.pub.changes[1].Entity.Value)
	assert.False(t, f.pub.changes[1].Reverted)
}

func TestApplyNew_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 100))
	require.NoError(t, err)
	b, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 100))
	require.NoError(t, err)

	assert.Equal(t, int64(100), b.Value)
	assert.Len(t, b.RevertableEvents, 1)
	assert.Equal(t, 1, f.pub.count())
}

func TestApplyNew_OutOfOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, e := range []domain.BalanceEvent{income(5, 0, 10), income(2, 0, 20), outcome(3, 1, 5), income(1, 0, 1)} {
		_, err := f.rec.ApplyNew(ctx, acc, e)
		require.NoError(t, err)
	}

	b, err := f.rec.Get(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, int64(26), b.Value)
	require.Len(t, b.RevertableEvents, 4)
	assert.Equal(t, uint64(1), b.RevertableEvents[0].Log().Slot)
	assert.Equal(t, uint64(5), b.RevertableEvents[3].Log().Slot)
	assertConsistent(t, b)
}

func TestApplyNew_SameProvenanceDifferentType(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// 自转账：同一出处在同一账户上产生支出和收入
	_, err := f.rec.ApplyNew(ctx, acc, outcome(1, 0, 40))
	require.NoError(t, err)
	b, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 40))
	require.NoError(t, err)
	assert.Len(t, b.RevertableEvents, 2)
	assert.Zero(t, b.Value)

	b, err = f.rec.Revert(ctx, acc, ref(1, 0))
	require.NoError(t, err)
	assert.Zero(t, b.Value)
	for _, e := range b.RevertableEvents {
		assert.True(t, e.IsReversed())
	}
	last := f.pub.changes[f.pub.count()-1]
	assert.True(t, last.Reverted)
	assert.Len(t, last.Causes, 2)
}

func TestRevert_InverseLaw(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 50))
	require.NoError(t, err)
	before, err := f.rec.Get(ctx, acc)
	require.NoError(t, err)

	_, err = f.rec.ApplyNew(ctx, acc, outcome(2, 0, 20))
	require.NoError(t, err)
	after, err := f.rec.Revert(ctx, acc, ref(2, 0))
	require.NoError(t, err)

	assert.Equal(t, before.Value, after.Value)
	require.Len(t, after.RevertableEvents, 2)
	assert.True(t, after.RevertableEvents[1].IsReversed())
	assertConsistent(t, after)

	last := f.pub.changes[f.pub.count()-1]
	assert.True(t, last.Reverted)
	require.Len(t, last.Causes, 1)
	assert.IsType(t, domain.BalanceIncomeEvent{}, last.Causes[0])
	assert.True(t, last.Causes[0].IsReversed())

	// 重复回滚是空操作
	published := f.pub.count()
	again, err := f.rec.Revert(ctx, acc, ref(2, 0))
	require.NoError(t, err)
	assert.Equal(t, after.Value, again.Value)
	assert.Equal(t, published, f.pub.count())
}

func TestRevert_MiddleEventRefolds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, e := range []domain.BalanceEvent{income(1, 0, 10), income(2, 0, 100), outcome(3, 0, 1)} {
		_, err := f.rec.ApplyNew(ctx, acc, e)
		require.NoError(t, err)
	}
	b, err := f.rec.Revert(ctx, acc, ref(2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(9), b.Value)
	assertConsistent(t, b)
}

func TestRevert_Unknown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.rec.Revert(ctx, acc, ref(1, 0))
	assert.ErrorIs(t, err, ErrReorgInconsistency)

	_, err = f.rec.ApplyNew(ctx, acc, income(1, 0, 10))
	require.NoError(t, err)
	_, err = f.rec.Revert(ctx, acc, ref(9, 9))
	assert.ErrorIs(t, err, ErrReorgInconsistency)
}

func TestApplyNew_ReactivatesReversed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 10))
	require.NoError(t, err)
	_, err = f.rec.Revert(ctx, acc, ref(1, 0))
	require.NoError(t, err)

	b, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Value)
	require.Len(t, b.RevertableEvents, 1)
	assert.False(t, b.RevertableEvents[0].IsReversed())
}

func TestApplyNew_ConcurrentSameID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.rec.ApplyNew(ctx, acc, income(uint64(i%7), uint32(i), 1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	b, err := f.rec.Get(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, int64(n), b.Value)
	assert.Len(t, b.RevertableEvents, n)
	assertConsistent(t, b)
}

func TestApplyNew_StoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.failSaves = 1

	_, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 10))
	assert.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, f.pub.count())

	b, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Value)
	assert.Equal(t, 1, f.pub.count())
}

func TestApplyNew_ContextCanceled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rec.ApplyNew(ctx, acc, income(1, 0, 10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.Len())
}

func TestApplyNew_PublishFailure(t *testing.T) {
	f := newFixture()
	f.pub.err = errors.New("bus down")

	b, err := f.rec.ApplyNew(context.Background(), acc, income(1, 0, 10))
	require.Error(t, err)
	// 已保存，通知失败
	assert.Equal(t, int64(10), b.Value)
	assert.Equal(t, 1, f.store.Len())
}

func TestApplyNew_PublishRetryDeliversOnce(t *testing.T) {
	f := newFixture()
	f.pub.mu.Lock()
	f.pub.err = errors.New("bus down")
	f.pub.mu.Unlock()

	_, err := f.rec.ApplyNew(context.Background(), acc, income(1, 0, 10))
	require.Error(t, err)
	assert.Equal(t, 0, f.pub.count())

	// 通知仍失败时重试返回错误，不丢变更
	_, err = f.rec.ApplyNew(context.Background(), acc, income(1, 0, 10))
	require.Error(t, err)

	f.pub.mu.Lock()
	f.pub.err = nil
	f.pub.mu.Unlock()

	b, err := f.rec.ApplyNew(context.Background(), acc, income(1, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Value)
	require.Equal(t, 1, f.pub.count())
	assert.Equal(t, int64(10), f.pub.changes[0].Entity.Value)
	assert.False(t, f.pub.changes[0].Reverted)

	// 补发之后重复事件不再通知
	_, err = f.rec.ApplyNew(context.Background(), acc, income(1, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, f.pub.count())
	assert.Equal(t, 1, f.store.Len())
}

func TestNew_NilPublisher(t *testing.T) {
	store := memory.NewStore[domain.TokenID, domain.Token]()
	rec := New[domain.TokenID, domain.TokenEvent, domain.Token](
		"token", store, nil, reducer.TokenReducer{}, domain.EmptyToken)

	tok, err := rec.ApplyNew(context.Background(), "mint",
		domain.TokenSupplyIncreaseEvent{Mint: "mint", Amount: 3, LogRef: ref(1, 0)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), tok.Supply)
	assert.Equal(t, "token", rec.Name())
}
