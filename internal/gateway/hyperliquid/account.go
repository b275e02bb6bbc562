package hyperliquid

import (
	"context"
	"math"
	"strconv"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"
	"perpdesk/internal/portfolio"

	"github.com/tidwall/gjson"
)

// Account implements portfolio.Adapter, OrderLister and FillLister.
type Account struct {
	c *Client
}

func (c *Client) Account() *Account {
	return &Account{c: c}
}

func (a *Account) Name() market.Exchange {
	return market.Hyperliquid
}

func (a *Account) FetchUserPositions(ctx context.Context, address string) ([]portfolio.UserPosition, error) {
	res, err := a.c.info(ctx, map[string]any{"type": "clearinghouseState", "user": address})
	if err != nil {
		return nil, err
	}
	return ParsePositions(res), nil
}

// ParsePositions reads clearinghouseState.assetPositions.
func ParsePositions(state gjson.Result) []portfolio.UserPosition {
	var out []portfolio.UserPosition
	state.Get("assetPositions").ForEach(func(_, item gjson.Result) bool {
		p := item.Get("position")
		if !p.Exists() {
			p = item
		}
		szi := convert.Number(p.Get("szi"))
		coin := strings.ToUpper(p.Get("coin").String())
		if szi == 0 || coin == "" {
			return true
		}
		size := math.Abs(szi)
		pos := portfolio.UserPosition{
			Symbol:           coin,
			BaseAsset:        coin,
			Side:             portfolio.SideFromSigned(szi),
			Size:             size,
			EntryPrice:       convert.Number(p.Get("entryPx")),
			LiquidationPrice: convert.Number(p.Get("liquidationPx")),
			UnrealizedPnl:    convert.Number(p.Get("unrealizedPnl")),
			Leverage:         convert.Number(p.Get("leverage.value")),
		}
		if value := convert.Number(p.Get("positionValue")); value > 0 {
			pos.MarkPrice = value / size
		}
		if roe := p.Get("returnOnEquity"); roe.Exists() {
			pos.UnrealizedPnlPercent = convert.Number(roe) * 100
		}
		out = append(out, pos)
		return true
	})
	return out
}

func (a *Account) FetchOpenOrders(ctx context.Context, address string) ([]portfolio.OpenOrder, error) {
	res, err := a.c.info(ctx, map[string]any{"type": "frontendOpenOrders", "user": address})
	if err != nil {
		return nil, err
	}
	var out []portfolio.OpenOrder
	res.ForEach(func(_, o gjson.Result) bool {
		out = append(out, portfolio.OpenOrder{
			ID:         strconv.FormatInt(convert.Int64(o.Get("oid")), 10),
			Symbol:     strings.ToUpper(o.Get("coin").String()),
			Side:       market.ParseSide(o.Get("side").String()),
			Type:       strings.ToLower(o.Get("orderType").String()),
			Size:       convert.Number(o.Get("sz")),
			Price:      convert.Number(o.Get("limitPx")),
			ReduceOnly: o.Get("reduceOnly").Bool(),
			Timestamp:  convert.Int64(o.Get("timestamp")),
		})
		return true
	})
	return out, nil
}

func (a *Account) FetchFills(ctx context.Context, address string) ([]portfolio.Fill, error) {
	res, err := a.c.info(ctx, map[string]any{"type": "userFills", "user": address})
	if err != nil {
		return nil, err
	}
	var out []portfolio.Fill
	res.ForEach(func(_, f gjson.Result) bool {
		out = append(out, portfolio.Fill{
			ID:        tradeID(f),
			Symbol:    strings.ToUpper(f.Get("coin").String()),
			Side:      market.ParseSide(f.Get("side").String()),
			Price:     convert.Number(f.Get("px")),
			Size:      convert.Number(f.Get("sz")),
			Fee:       convert.Number(f.Get("fee")),
			Timestamp: convert.Int64(f.Get("time")),
		})
		return true
	})
	return out, nil
}
