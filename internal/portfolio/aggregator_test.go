package portfolio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"perpdesk/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAdapter struct {
	mock.Mock
	name market.Exchange
}

func newMockAdapter(name market.Exchange) *MockAdapter {
	return &MockAdapter{name: name}
}

func (m *MockAdapter) Name() market.Exchange { return m.name }

func (m *MockAdapter) FetchUserPositions(ctx context.Context, address string) ([]UserPosition, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]UserPosition), args.Error(1)
}

type MockOrderAdapter struct {
	MockAdapter
}

func (m *MockOrderAdapter) FetchOpenOrders(ctx context.Context, address string) ([]OpenOrder, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OpenOrder), args.Error(1)
}

const addr = "0xabc"

func TestFetchAllPositionsPartialFailure(t *testing.T) {
	a1 := newMockAdapter(market.Hyperliquid)
	a2 := newMockAdapter(market.DYDX)
	a3 := newMockAdapter(market.GMX)
	a1.On("FetchUserPositions", mock.Anything, addr).Return([]UserPosition{{Symbol: "BTC", Side: Long, Size: 1, EntryPrice: 100, Leverage: 2, UnrealizedPnl: 10}}, nil)
	a2.On("FetchUserPositions", mock.Anything, addr).Return(nil, errors.New("indexer down"))
	a3.On("FetchUserPositions", mock.Anything, addr).Return([]UserPosition{{Symbol: "ETH", Side: Short, Size: -2}}, nil)

	agg := NewAggregator([]Adapter{a1, a2, a3}, Options{})
	got := agg.FetchAllPositions(context.Background(), addr)

	require.Len(t, got, 2)
	assert.Equal(t, market.Hyperliquid, got[0].Exchange)
	assert.Equal(t, "hyperliquid-BTC-long", got[0].ID)
	assert.InDelta(t, 20.0, got[0].UnrealizedPnlPercent, 1e-9)
	assert.Equal(t, market.GMX, got[1].Exchange)
	assert.Equal(t, 2.0, got[1].Size)
	a1.AssertExpectations(t)
	a2.AssertExpectations(t)
	a3.AssertExpectations(t)
}

func TestFetchAllPositionsEmptyAddressMakesNoCalls(t *testing.T) {
	a1 := newMockAdapter(market.Hyperliquid)
	agg := NewAggregator([]Adapter{a1}, Options{})

	assert.Empty(t, agg.FetchAllPositions(context.Background(), "  "))
	a1.AssertNotCalled(t, "FetchUserPositions", mock.Anything, mock.Anything)
}

func TestAdapterPanicIsSettledAsFailure(t *testing.T) {
	a1 := newMockAdapter(market.Lighter)
	a1.On("FetchUserPositions", mock.Anything, addr).Run(func(mock.Arguments) { panic("boom") })
	a2 := newMockAdapter(market.Aster)
	a2.On("FetchUserPositions", mock.Anything, addr).Return([]UserPosition{{Symbol: "SOL", Side: Long, Size: 3}}, nil)

	res := NewAggregator([]Adapter{a1, a2}, Options{}).Collect(context.Background(), addr)
	require.Len(t, res.Positions, 1)
	assert.Equal(t, market.Aster, res.Positions[0].Exchange)
	require.NotEmpty(t, res.Failures)
	assert.Equal(t, market.Lighter, res.Failures[0].Exchange)
}

func TestBreakerSkipsFailingVenue(t *testing.T) {
	a1 := newMockAdapter(market.DYDX)
	a1.On("FetchUserPositions", mock.Anything, addr).Return(nil, errors.New("503"))
	agg := NewAggregator([]Adapter{a1}, Options{BreakerThreshold: 1, BreakerCooldown: time.Hour})

	agg.FetchAllPositions(context.Background(), addr)
	_, failures := agg.positions(context.Background(), addr)

	a1.AssertNumberOfCalls(t, "FetchUserPositions", 1)
	require.Len(t, failures, 1)
	assert.Equal(t, ErrBreakerOpen.Error(), failures[0].Error)
}

func TestOpenOrdersOnlyFromListers(t *testing.T) {
	plain := newMockAdapter(market.GMX)
	lister := &MockOrderAdapter{MockAdapter: MockAdapter{name: market.Hyperliquid}}
	lister.On("FetchOpenOrders", mock.Anything, addr).Return([]OpenOrder{{ID: "1", Symbol: "BTC", Side: market.Buy}}, nil)

	got := NewAggregator([]Adapter{plain, lister}, Options{}).FetchAllOpenOrders(context.Background(), addr)
	require.Len(t, got, 1)
	assert.Equal(t, market.Hyperliquid, got[0].Exchange)
	plain.AssertNotCalled(t, "FetchUserPositions", mock.Anything, mock.Anything)
}

func TestTimeoutBoundsEachAdapter(t *testing.T) {
	slow := newMockAdapter(market.Lighter)
	slow.On("FetchUserPositions", mock.Anything, addr).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded)

	start := time.Now()
	got := NewAggregator([]Adapter{slow}, Options{Timeout: 20 * time.Millisecond}).FetchAllPositions(context.Background(), addr)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPnLPercent(t *testing.T) {
	assert.InDelta(t, 50.0, PnLPercent(25, 1, 100, 2), 1e-9)
	assert.InDelta(t, 10.0, PnLPercent(10, -1, 100, 0), 1e-9)
	assert.Equal(t, 0.0, PnLPercent(10, 0, 100, 5))
}

type countingCollector struct {
	calls atomic.Int32
	block chan struct{}
}

func (c *countingCollector) Collect(_ context.Context, address string) Result {
	n := c.calls.Add(1)
	if c.block != nil && n == 1 {
		<-c.block
	}
	return Result{Address: address, Positions: []UserPosition{{ID: string(rune('0' + n))}}}
}

func TestRefresherIsPullBased(t *testing.T) {
	src := &countingCollector{}
	r := NewRefresher(src)

	assert.Empty(t, r.SetAddress(context.Background(), "").Positions)
	assert.EqualValues(t, 0, src.calls.Load())

	res := r.SetAddress(context.Background(), addr)
	assert.Equal(t, addr, res.Address)
	assert.EqualValues(t, 1, src.calls.Load())

	r.SetAddress(context.Background(), addr)
	assert.EqualValues(t, 1, src.calls.Load(), "same address does not refetch")

	before := r.Counter()
	r.Refresh(context.Background())
	assert.EqualValues(t, 2, src.calls.Load())
	assert.Greater(t, r.Counter(), before)
}

func TestRefresherDiscardsStaleResult(t *testing.T) {
	src := &countingCollector{block: make(chan struct{})}
	r := NewRefresher(src)

	done := make(chan Result)
	go func() { done <- r.SetAddress(context.Background(), addr) }()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	fresh := r.Refresh(context.Background())
	close(src.block)
	stale := <-done

	assert.Equal(t, "2", fresh.Positions[0].ID)
	assert.Equal(t, "2", stale.Positions[0].ID, "late result is dropped in favour of the newer one")
	assert.Equal(t, "2", r.Current().Positions[0].ID)
}
