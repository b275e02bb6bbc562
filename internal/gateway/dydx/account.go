package dydx

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/portfolio"

	"github.com/tidwall/gjson"
)

const fillsLimit = 100

// Account reads subaccount 0 of a dydx1... address.
type Account struct {
	c *Client
}

func (c *Client) Account() *Account {
	return &Account{c: c}
}

func (a *Account) Name() market.Exchange {
	return market.DYDX
}

func subaccountQuery(address string) url.Values {
	q := url.Values{}
	q.Set("address", address)
	q.Set("subaccountNumber", strconv.Itoa(defaultSubaccount))
	return q
}

func (a *Account) FetchUserPositions(ctx context.Context, address string) ([]portfolio.UserPosition, error) {
	path := fmt.Sprintf("/v4/addresses/%s/subaccountNumber/%d", url.PathEscape(address), defaultSubaccount)
	res, err := a.c.rest.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	oracle, err := a.c.OraclePrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("oracle prices: %w", err)
	}
	return ParsePositions(res.Get("subaccount"), oracle), nil
}

// ParsePositions reads subaccount.openPerpetualPositions. Size is signed
// (negative for shorts). The indexer has no mark or leverage, so the
// oracle price stands in for the mark and leverage is notional/equity.
func ParsePositions(sub gjson.Result, oracle map[string]float64) []portfolio.UserPosition {
	equity := convert.Number(sub.Get("equity"))
	var out []portfolio.UserPosition
	sub.Get("openPerpetualPositions").ForEach(func(k, p gjson.Result) bool {
		ticker := strings.ToUpper(p.Get("market").String())
		if ticker == "" {
			ticker = strings.ToUpper(k.String())
		}
		signed := convert.Number(p.Get("size"))
		if signed == 0 {
			return true
		}
		side := portfolio.SideFromSigned(signed)
		if strings.EqualFold(p.Get("side").String(), "SHORT") {
			side = portfolio.Short
		}
		size := math.Abs(signed)
		base := symbol.Parse(ticker).Base
		pos := portfolio.UserPosition{
			Symbol:        base,
			BaseAsset:     base,
			Side:          side,
			Size:          size,
			EntryPrice:    convert.Number(p.Get("entryPrice")),
			MarkPrice:     oracle[ticker],
			UnrealizedPnl: convert.Number(p.Get("unrealizedPnl")),
		}
		if equity > 0 && pos.MarkPrice > 0 {
			pos.Leverage = math.Round(size*pos.MarkPrice/equity*100) / 100
		}
		out = append(out, pos)
		return true
	})
	return out
}

func (a *Account) FetchOpenOrders(ctx context.Context, address string) ([]portfolio.OpenOrder, error) {
	q := subaccountQuery(address)
	q.Set("status", "OPEN")
	res, err := a.c.rest.Get(ctx, "/v4/orders", q)
	if err != nil {
		return nil, err
	}
	var out []portfolio.OpenOrder
	res.ForEach(func(_, o gjson.Result) bool {
		out = append(out, portfolio.OpenOrder{
			ID:         o.Get("id").String(),
			Symbol:     symbol.Parse(o.Get("ticker").String()).Base,
			Side:       market.ParseSide(o.Get("side").String()),
			Type:       strings.ToLower(o.Get("type").String()),
			Size:       convert.Number(o.Get("size")) - convert.Number(o.Get("totalFilled")),
			Price:      convert.Number(o.Get("price")),
			ReduceOnly: o.Get("reduceOnly").Bool(),
			Timestamp:  ParseTime(o.Get("updatedAt").String()),
		})
		return true
	})
	return out, nil
}

func (a *Account) FetchFills(ctx context.Context, address string) ([]portfolio.Fill, error) {
	q := subaccountQuery(address)
	q.Set("limit", strconv.Itoa(fillsLimit))
	res, err := a.c.rest.Get(ctx, "/v4/fills", q)
	if err != nil {
		return nil, err
	}
	var out []portfolio.Fill
	res.Get("fills").ForEach(func(_, f gjson.Result) bool {
		out = append(out, portfolio.Fill{
			ID:        f.Get("id").String(),
			Symbol:    symbol.Parse(f.Get("market").String()).Base,
			Side:      market.ParseSide(f.Get("side").String()),
			Price:     convert.Number(f.Get("price")),
			Size:      convert.Number(f.Get("size")),
			Fee:       convert.Number(f.Get("fee")),
			Timestamp: ParseTime(f.Get("createdAt").String()),
		})
		return true
	})
	return out, nil
}
