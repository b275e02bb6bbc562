package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"perpdesk/internal/logger"
	"perpdesk/internal/market"
	"perpdesk/internal/pkg/circuit"

	"golang.org/x/sync/errgroup"
)

var ErrBreakerOpen = errors.New("venue temporarily skipped after repeated failures")

type Options struct {
	// Timeout bounds each adapter call; zero leaves it to the caller's ctx.
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Failure records one adapter that did not settle successfully.
type Failure struct {
	Exchange market.Exchange `json:"exchange"`
	Error    string          `json:"error"`
}

// Aggregator fans a wallet query out to every registered adapter and
// concatenates the successful results in registry order. A failing adapter
// is logged and left out; it never fails the aggregate.
type Aggregator struct {
	adapters []Adapter
	breakers map[market.Exchange]*circuit.CircuitBreaker
	timeout  time.Duration
}

func NewAggregator(adapters []Adapter, opts Options) *Aggregator {
	a := &Aggregator{
		breakers: make(map[market.Exchange]*circuit.CircuitBreaker, len(adapters)),
		timeout:  opts.Timeout,
	}
	for _, ad := range adapters {
		if ad == nil {
			continue
		}
		a.adapters = append(a.adapters, ad)
		a.breakers[ad.Name()] = circuit.NewCircuitBreaker(string(ad.Name()), opts.BreakerThreshold, opts.BreakerCooldown)
	}
	return a
}

func (a *Aggregator) Adapters() []Adapter {
	return append([]Adapter(nil), a.adapters...)
}

func (a *Aggregator) FetchAllPositions(ctx context.Context, address string) []UserPosition {
	out, _ := a.positions(ctx, address)
	return out
}

func (a *Aggregator) FetchAllOpenOrders(ctx context.Context, address string) []OpenOrder {
	out, _ := a.openOrders(ctx, address)
	return out
}

func (a *Aggregator) FetchAllFills(ctx context.Context, address string) []Fill {
	out, _ := a.fills(ctx, address)
	return out
}

// Result is one combined positions/orders/fills fetch.
type Result struct {
	Address   string         `json:"address"`
	Positions []UserPosition `json:"positions"`
	Orders    []OpenOrder    `json:"orders"`
	Fills     []Fill         `json:"fills"`
	Failures  []Failure      `json:"failures,omitempty"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

// Collect runs the three fan-outs concurrently.
func (a *Aggregator) Collect(ctx context.Context, address string) Result {
	res := Result{Address: strings.TrimSpace(address)}
	var pf, of, ff []Failure
	var group errgroup.Group
	group.Go(func() error {
		res.Positions, pf = a.positions(ctx, address)
		return nil
	})
	group.Go(func() error {
		res.Orders, of = a.openOrders(ctx, address)
		return nil
	})
	group.Go(func() error {
		res.Fills, ff = a.fills(ctx, address)
		return nil
	})
	_ = group.Wait()
	res.Failures = append(append(append(res.Failures, pf...), of...), ff...)
	res.FetchedAt = time.Now()
	return res
}

func (a *Aggregator) positions(ctx context.Context, address string) ([]UserPosition, []Failure) {
	return fanOut(a, ctx, address, "positions", func(ctx context.Context, ad Adapter, addr string) ([]UserPosition, bool, error) {
		list, err := ad.FetchUserPositions(ctx, addr)
		for i := range list {
			list[i].Finalize(ad.Name())
		}
		return list, true, err
	})
}

func (a *Aggregator) openOrders(ctx context.Context, address string) ([]OpenOrder, []Failure) {
	return fanOut(a, ctx, address, "open orders", func(ctx context.Context, ad Adapter, addr string) ([]OpenOrder, bool, error) {
		lister, ok := ad.(OrderLister)
		if !ok {
			return nil, false, nil
		}
		list, err := lister.FetchOpenOrders(ctx, addr)
		for i := range list {
			list[i].Exchange = ad.Name()
		}
		return list, true, err
	})
}

func (a *Aggregator) fills(ctx context.Context, address string) ([]Fill, []Failure) {
	return fanOut(a, ctx, address, "fills", func(ctx context.Context, ad Adapter, addr string) ([]Fill, bool, error) {
		lister, ok := ad.(FillLister)
		if !ok {
			return nil, false, nil
		}
		list, err := lister.FetchFills(ctx, addr)
		for i := range list {
			list[i].Exchange = ad.Name()
		}
		return list, true, err
	})
}

// fanOut runs call against every adapter concurrently. Each task returns a
// nil error so the group waits for all of them. The bool result reports
// whether the adapter supports the query at all.
func fanOut[T any](a *Aggregator, ctx context.Context, address, what string, call func(context.Context, Adapter, string) ([]T, bool, error)) ([]T, []Failure) {
	address = strings.TrimSpace(address)
	if address == "" || len(a.adapters) == 0 {
		return nil, nil
	}
	results := make([][]T, len(a.adapters))
	var (
		failMu   sync.Mutex
		failures []Failure
	)
	fail := func(ex market.Exchange, err error) {
		logger.Warnf("[portfolio] %s %s failed: %v", ex, what, err)
		failMu.Lock()
		failures = append(failures, Failure{Exchange: ex, Error: err.Error()})
		failMu.Unlock()
	}

	var group errgroup.Group
	for i, ad := range a.adapters {
		group.Go(func() error {
			cb := a.breakers[ad.Name()]
			if cb != nil && !cb.Allow() {
				fail(ad.Name(), ErrBreakerOpen)
				return nil
			}
			callCtx := ctx
			if a.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, a.timeout)
				defer cancel()
			}
			list, supported, err := safeCall(callCtx, ad, address, call)
			if !supported {
				return nil
			}
			if err != nil {
				if cb != nil {
					cb.RecordFailure()
				}
				fail(ad.Name(), err)
				return nil
			}
			if cb != nil {
				cb.RecordSuccess()
			}
			results[i] = list
			return nil
		})
	}
	_ = group.Wait()

	var out []T
	for _, list := range results {
		out = append(out, list...)
	}
	return out, failures
}

func safeCall[T any](ctx context.Context, ad Adapter, address string, call func(context.Context, Adapter, string) ([]T, bool, error)) (list []T, supported bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			list, supported, err = nil, true, fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return call(ctx, ad, address)
}
