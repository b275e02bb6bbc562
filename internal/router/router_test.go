package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"perpdesk/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlacer struct {
	mock.Mock
}

func (m *MockPlacer) Place(ctx context.Context, req UnifiedOrderRequest) (OrderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(OrderResult), args.Error(1)
}

func (m *MockPlacer) Cancel(ctx context.Context, req CancelRequest) (OrderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(OrderResult), args.Error(1)
}

type memJournal struct {
	mu      sync.Mutex
	entries []Entry
}

func (j *memJournal) Record(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func validRequest() UnifiedOrderRequest {
	return UnifiedOrderRequest{
		Exchange: market.Hyperliquid,
		Asset:    "btc",
		Side:     "buy",
		Size:     0.01,
		Price:    60000,
		Type:     Limit,
	}
}

func TestPlaceDispatchesByExchange(t *testing.T) {
	hl := new(MockPlacer)
	hl.On("Place", mock.Anything, mock.MatchedBy(func(r UnifiedOrderRequest) bool {
		return r.Asset == "BTC" && r.Side == market.Buy && r.ClientID != ""
	})).Return(OrderResult{Success: true, OrderID: "42"}, nil)
	j := &memJournal{}
	r := New(map[market.Exchange]Placer{market.Hyperliquid: hl}, j)

	res := r.Place(context.Background(), validRequest())

	assert.True(t, res.Success)
	assert.Equal(t, "42", res.OrderID)
	assert.Equal(t, market.Hyperliquid, res.Exchange)
	assert.Equal(t, "ok", res.Message)
	hl.AssertExpectations(t)
	require.Len(t, j.entries, 1)
	assert.Equal(t, ActionPlace, j.entries[0].Action)
	assert.True(t, j.entries[0].Result.Success)
}

func TestPlaceNeverReturnsError(t *testing.T) {
	failing := new(MockPlacer)
	failing.On("Place", mock.Anything, mock.Anything).Return(OrderResult{}, errors.New("insufficient margin"))
	panicking := new(MockPlacer)
	panicking.On("Place", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("nil map") })

	r := New(map[market.Exchange]Placer{market.Hyperliquid: failing, market.Aster: panicking}, nil)

	res := r.Place(context.Background(), validRequest())
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient margin", res.Message)

	req := validRequest()
	req.Exchange = market.Aster
	res = r.Place(context.Background(), req)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "internal error")
	assert.Equal(t, market.Aster, res.Exchange)
}

func TestPlaceUnknownExchange(t *testing.T) {
	j := &memJournal{}
	r := New(nil, j)
	req := validRequest()
	req.Exchange = "binance"
	res := r.Place(context.Background(), req)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, ErrUnknownExchange.Error())
	assert.Len(t, j.entries, 1)
}

func TestNormalizeValidation(t *testing.T) {
	cases := map[string]func(*UnifiedOrderRequest){
		"missing asset":     func(r *UnifiedOrderRequest) { r.Asset = " " },
		"unknown side":      func(r *UnifiedOrderRequest) { r.Side = "sideways" },
		"zero size":         func(r *UnifiedOrderRequest) { r.Size = 0 },
		"limit no price":    func(r *UnifiedOrderRequest) { r.Price = 0 },
		"bad type":          func(r *UnifiedOrderRequest) { r.Type = "iceberg" },
		"negative leverage": func(r *UnifiedOrderRequest) { r.Leverage = -1 },
		"negative tp":       func(r *UnifiedOrderRequest) { r.TPSL = &TPSL{TakeProfit: -1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			_, err := Normalize(req)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	req := validRequest()
	req.Exchange = "HyperLiquid"
	req.Type = ""
	req.Side = "A"
	req.TPSL = &TPSL{}
	got, err := Normalize(req)
	require.NoError(t, err)
	assert.Equal(t, market.Hyperliquid, got.Exchange)
	assert.Equal(t, Limit, got.Type)
	assert.Equal(t, market.Sell, got.Side)
	assert.Nil(t, got.TPSL)
	assert.Len(t, got.ClientID, 36)

	req.Price = 0
	got, err = Normalize(req)
	require.NoError(t, err)
	assert.Equal(t, Market, got.Type)
}

func TestCancelRequiresIdentifier(t *testing.T) {
	p := new(MockPlacer)
	r := New(map[market.Exchange]Placer{market.Aster: p}, nil)
	res := r.Cancel(context.Background(), CancelRequest{Exchange: market.Aster, Asset: "BTC"})
	assert.False(t, res.Success)
	p.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)

	p.On("Cancel", mock.Anything, mock.Anything).Return(OrderResult{Success: true, OrderID: "7"}, nil)
	res = r.Cancel(context.Background(), CancelRequest{Exchange: market.Aster, Asset: "btc", OrderID: "7"})
	assert.True(t, res.Success)
}

func TestExchangeNameIsCaseInsensitive(t *testing.T) {
	hl := new(MockPlacer)
	hl.On("Place", mock.Anything, mock.MatchedBy(func(r UnifiedOrderRequest) bool {
		return r.Exchange == market.Hyperliquid
	})).Return(OrderResult{Success: true, OrderID: "42"}, nil)
	hl.On("Cancel", mock.Anything, mock.MatchedBy(func(r CancelRequest) bool {
		return r.Exchange == market.Hyperliquid && r.Asset == "BTC"
	})).Return(OrderResult{Success: true, OrderID: "42"}, nil)
	j := &memJournal{}
	r := New(map[market.Exchange]Placer{market.Hyperliquid: hl}, j)

	req := validRequest()
	req.Exchange = " Hyperliquid"
	assert.True(t, r.Place(context.Background(), req).Success)
	res := r.Cancel(context.Background(), CancelRequest{Exchange: "Hyperliquid", Asset: "btc", OrderID: "42"})
	assert.True(t, res.Success)
	assert.Equal(t, market.Hyperliquid, res.Exchange)
	hl.AssertExpectations(t)
	require.Len(t, j.entries, 2)
	assert.Equal(t, market.Hyperliquid, j.entries[1].Exchange)
}

func TestUnsupportedPlacer(t *testing.T) {
	r := New(map[market.Exchange]Placer{market.GMX: Unsupported{Exchange: market.GMX}}, nil)
	req := validRequest()
	req.Exchange = market.GMX
	res := r.Place(context.Background(), req)
	assert.False(t, res.Success)
	assert.Equal(t, "order placement on gmx is not supported", res.Message)
}
