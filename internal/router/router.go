package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"perpdesk/internal/logger"
	"perpdesk/internal/market"

	"github.com/google/uuid"
)

var (
	ErrUnknownExchange = errors.New("no order placer for exchange")
	ErrInvalidOrder    = errors.New("invalid order")
)

// Router dispatches unified orders to the placer of the requested venue.
// Place and Cancel never return errors: every failure, including a placer
// panic, becomes OrderResult{Success: false}.
type Router struct {
	placers map[market.Exchange]Placer
	journal Journal
	now     func() time.Time
}

func New(placers map[market.Exchange]Placer, journal Journal) *Router {
	m := make(map[market.Exchange]Placer, len(placers))
	for ex, p := range placers {
		if p != nil {
			m[ex] = p
		}
	}
	return &Router{placers: m, journal: journal, now: time.Now}
}

func (r *Router) Supports(ex market.Exchange) bool {
	_, ok := r.placers[ex]
	return ok
}

func (r *Router) Place(ctx context.Context, req UnifiedOrderRequest) (res OrderResult) {
	start := r.now()
	req, err := Normalize(req)
	defer func() {
		r.record(ctx, Entry{
			Action:   ActionPlace,
			Exchange: req.Exchange,
			Asset:    req.Asset,
			ClientID: req.ClientID,
			Request:  req,
			Result:   res,
			Latency:  r.now().Sub(start),
			At:       start,
		})
	}()
	if err != nil {
		return Failed(req.Exchange, err.Error())
	}
	p, ok := r.placers[req.Exchange]
	if !ok {
		return Failed(req.Exchange, fmt.Sprintf("%v: %s", ErrUnknownExchange, req.Exchange))
	}
	return r.invoke(req.Exchange, "place", func() (OrderResult, error) { return p.Place(ctx, req) })
}

func (r *Router) Cancel(ctx context.Context, req CancelRequest) (res OrderResult) {
	start := r.now()
	if ex, ok := market.ParseExchange(string(req.Exchange)); ok {
		req.Exchange = ex
	}
	req.Asset = strings.ToUpper(strings.TrimSpace(req.Asset))
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.ClientID = strings.TrimSpace(req.ClientID)
	defer func() {
		r.record(ctx, Entry{
			Action:   ActionCancel,
			Exchange: req.Exchange,
			Asset:    req.Asset,
			ClientID: req.ClientID,
			Request:  req,
			Result:   res,
			Latency:  r.now().Sub(start),
			At:       start,
		})
	}()
	if req.Asset == "" {
		return Failed(req.Exchange, fmt.Sprintf("%v: asset is required", ErrInvalidOrder))
	}
	if req.OrderID == "" && req.ClientID == "" {
		return Failed(req.Exchange, fmt.Sprintf("%v: orderId or clientId is required", ErrInvalidOrder))
	}
	p, ok := r.placers[req.Exchange]
	if !ok {
		return Failed(req.Exchange, fmt.Sprintf("%v: %s", ErrUnknownExchange, req.Exchange))
	}
	return r.invoke(req.Exchange, "cancel", func() (OrderResult, error) { return p.Cancel(ctx, req) })
}

func (r *Router) invoke(ex market.Exchange, op string, call func() (OrderResult, error)) (res OrderResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("[router] %s %s panic: %v", ex, op, rec)
			res = Failed(ex, fmt.Sprintf("internal error: %v", rec))
		}
	}()
	res, err := call()
	res.Exchange = ex
	if err != nil {
		logger.Warnf("[router] %s %s failed: %v", ex, op, err)
		msg := err.Error()
		if res.Message != "" && res.Message != msg {
			msg = res.Message + ": " + msg
		}
		res.Success = false
		res.Message = msg
		return res
	}
	if res.Message == "" && res.Success {
		res.Message = "ok"
	}
	return res
}

func (r *Router) record(ctx context.Context, e Entry) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		logger.Warnf("[router] journal %s %s: %v", e.Exchange, e.Action, err)
	}
}

// Normalize validates req and fills defaults. The side must decode to buy
// or sell; orders are never sent on a guessed side.
func Normalize(req UnifiedOrderRequest) (UnifiedOrderRequest, error) {
	if ex, ok := market.ParseExchange(string(req.Exchange)); ok {
		req.Exchange = ex
	}
	req.Asset = strings.ToUpper(strings.TrimSpace(req.Asset))
	if req.Asset == "" {
		return req, fmt.Errorf("%w: asset is required", ErrInvalidOrder)
	}
	side, ok := market.DecodeSide(string(req.Side))
	if !ok {
		return req, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, req.Side)
	}
	req.Side = side
	if !positive(req.Size) {
		return req, fmt.Errorf("%w: size must be > 0", ErrInvalidOrder)
	}
	req.Type = OrderType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	switch req.Type {
	case "":
		req.Type = Market
		if req.Price > 0 {
			req.Type = Limit
		}
	case Market, Limit:
	default:
		return req, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, req.Type)
	}
	if req.Type == Limit && !positive(req.Price) {
		return req, fmt.Errorf("%w: limit order requires price > 0", ErrInvalidOrder)
	}
	if req.Price < 0 || math.IsNaN(req.Price) {
		return req, fmt.Errorf("%w: price must be >= 0", ErrInvalidOrder)
	}
	if req.Leverage < 0 || math.IsNaN(req.Leverage) {
		return req, fmt.Errorf("%w: leverage must be >= 0", ErrInvalidOrder)
	}
	if req.TPSL != nil {
		if req.TPSL.TakeProfit < 0 || req.TPSL.StopLoss < 0 {
			return req, fmt.Errorf("%w: tpsl prices must be >= 0", ErrInvalidOrder)
		}
		if req.TPSL.TakeProfit == 0 && req.TPSL.StopLoss == 0 {
			req.TPSL = nil
		}
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}
	return req, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Unsupported is the placer of venues whose order flow needs an on-chain
// transaction this process does not build.
type Unsupported struct {
	Exchange market.Exchange
	Reason   string
}

func (u Unsupported) message() string {
	if u.Reason != "" {
		return u.Reason
	}
	return fmt.Sprintf("order placement on %s is not supported", u.Exchange)
}

func (u Unsupported) Place(context.Context, UnifiedOrderRequest) (OrderResult, error) {
	return Failed(u.Exchange, u.message()), nil
}

func (u Unsupported) Cancel(context.Context, CancelRequest) (OrderResult, error) {
	return Failed(u.Exchange, u.message()), nil
}
