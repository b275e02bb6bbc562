package aster

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/portfolio"
)

// ErrNoCredentials is returned by signed calls without an API key pair.
var ErrNoCredentials = errors.New("aster: api key not configured")

// Account reads the account behind the configured API key. Aster scopes
// signed endpoints by key, so the wallet address is informational only.
type Account struct {
	c *Client
}

func (c *Client) Account() *Account {
	return &Account{c: c}
}

func (a *Account) Name() market.Exchange {
	return market.Aster
}

func (a *Account) FetchUserPositions(ctx context.Context, _ string) ([]portfolio.UserPosition, error) {
	if !a.c.cfg.Authenticated() {
		return nil, ErrNoCredentials
	}
	risks, err := a.c.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}
	var out []portfolio.UserPosition
	for _, r := range risks {
		if r == nil {
			continue
		}
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := portfolio.SideFromSigned(amt)
		switch strings.ToUpper(r.PositionSide) {
		case "LONG":
			side = portfolio.Long
		case "SHORT":
			side = portfolio.Short
		}
		base := symbol.Parse(r.Symbol).Base
		out = append(out, portfolio.UserPosition{
			Symbol:           base,
			BaseAsset:        base,
			Side:             side,
			Size:             math.Abs(amt),
			EntryPrice:       parseFloat(r.EntryPrice),
			MarkPrice:        parseFloat(r.MarkPrice),
			LiquidationPrice: parseFloat(r.LiquidationPrice),
			UnrealizedPnl:    parseFloat(r.UnRealizedProfit),
			Leverage:         parseFloat(r.Leverage),
		})
	}
	return out, nil
}

func (a *Account) FetchOpenOrders(ctx context.Context, _ string) ([]portfolio.OpenOrder, error) {
	if !a.c.cfg.Authenticated() {
		return nil, ErrNoCredentials
	}
	orders, err := a.c.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]portfolio.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, portfolio.OpenOrder{
			ID:         strconv.FormatInt(o.OrderID, 10),
			Symbol:     symbol.Parse(o.Symbol).Base,
			Side:       market.ParseSide(string(o.Side)),
			Type:       strings.ToLower(string(o.Type)),
			Size:       parseFloat(o.OrigQuantity) - parseFloat(o.ExecutedQuantity),
			Price:      parseFloat(o.Price),
			ReduceOnly: o.ReduceOnly,
			Timestamp:  o.Time,
		})
	}
	return out, nil
}
