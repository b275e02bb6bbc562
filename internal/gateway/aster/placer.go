package aster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/router"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

// Placer sends orders through the signed fapi order endpoints.
type Placer struct {
	c *Client
}

func (c *Client) Placer() *Placer {
	return &Placer{c: c}
}

func (p *Placer) Place(ctx context.Context, req router.UnifiedOrderRequest) (router.OrderResult, error) {
	if !p.c.cfg.Authenticated() {
		return router.Failed(market.Aster, ErrNoCredentials.Error()), nil
	}
	sym := symbol.Aster.ToExchange(req.Asset)
	if req.Leverage > 0 {
		lev := int(math.Round(req.Leverage))
		if lev < 1 {
			lev = 1
		}
		if _, err := p.c.client.NewChangeLeverageService().Symbol(sym).Leverage(lev).Do(ctx); err != nil {
			return apiFailure(err, "change leverage")
		}
	}
	side, closeSide := futures.SideTypeBuy, futures.SideTypeSell
	if req.Side == market.Sell {
		side, closeSide = futures.SideTypeSell, futures.SideTypeBuy
	}
	qty := formatFloat(req.Size)
	svc := p.c.client.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Quantity(qty).
		ReduceOnly(req.ReduceOnly)
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}
	if req.Type == router.Market {
		svc = svc.Type(futures.OrderTypeMarket)
	} else {
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(formatFloat(req.Price))
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return apiFailure(err, "create order")
	}
	raw, _ := json.Marshal(resp)
	out := router.OrderResult{
		Success:  true,
		Message:  string(resp.Status),
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Exchange: market.Aster,
		Raw:      raw,
	}
	if req.TPSL != nil {
		if msg := p.protect(ctx, sym, closeSide, qty, req.TPSL); msg != "" {
			out.Message += "; " + msg
		}
	}
	return out, nil
}

// protect places reduce-only take-profit / stop-loss market triggers.
// Failures are reported in the message; the entry order stands.
func (p *Placer) protect(ctx context.Context, sym string, side futures.SideType, qty string, tpsl *router.TPSL) string {
	var failed []string
	place := func(kind futures.OrderType, trigger float64) {
		_, err := p.c.client.NewCreateOrderService().
			Symbol(sym).
			Side(side).
			Type(kind).
			Quantity(qty).
			StopPrice(formatFloat(trigger)).
			ReduceOnly(true).
			Do(ctx)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", kind, err))
		}
	}
	if tpsl.TakeProfit > 0 {
		place(futures.OrderTypeTakeProfitMarket, tpsl.TakeProfit)
	}
	if tpsl.StopLoss > 0 {
		place(futures.OrderTypeStopMarket, tpsl.StopLoss)
	}
	if len(failed) == 0 {
		return ""
	}
	return fmt.Sprintf("tpsl failed: %v", failed)
}

func (p *Placer) Cancel(ctx context.Context, req router.CancelRequest) (router.OrderResult, error) {
	if !p.c.cfg.Authenticated() {
		return router.Failed(market.Aster, ErrNoCredentials.Error()), nil
	}
	svc := p.c.client.NewCancelOrderService().Symbol(symbol.Aster.ToExchange(req.Asset))
	if id, err := strconv.ParseInt(req.OrderID, 10, 64); err == nil && id > 0 {
		svc = svc.OrderID(id)
	} else if req.ClientID != "" {
		svc = svc.OrigClientOrderID(req.ClientID)
	} else {
		return router.Failed(market.Aster, fmt.Sprintf("invalid order id %q", req.OrderID)), nil
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return apiFailure(err, "cancel order")
	}
	raw, _ := json.Marshal(resp)
	return router.OrderResult{
		Success:  true,
		Message:  string(resp.Status),
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Exchange: market.Aster,
		Raw:      raw,
	}, nil
}

// apiFailure turns a venue rejection into a failed result and keeps
// transport errors as errors.
func apiFailure(err error, op string) (router.OrderResult, error) {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return router.Failed(market.Aster, fmt.Sprintf("%s: %s (code %d)", op, apiErr.Message, apiErr.Code)), nil
	}
	return router.OrderResult{}, fmt.Errorf("aster %s: %w", op, err)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
