package lighter

import (
	"context"
	"math"
	"net/url"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"
	"perpdesk/internal/portfolio"

	"github.com/tidwall/gjson"
)

type Account struct {
	c *Client
}

func (c *Client) Account() *Account {
	return &Account{c: c}
}

func (a *Account) Name() market.Exchange {
	return market.Lighter
}

// FetchUserPositions looks the account up by its L1 address. An address
// without a Lighter account has no positions.
func (a *Account) FetchUserPositions(ctx context.Context, address string) ([]portfolio.UserPosition, error) {
	q := url.Values{"by": {"l1_address"}, "value": {address}}
	res, err := a.c.rest.Get(ctx, "/api/v1/account", q)
	if err != nil {
		return nil, err
	}
	var out []portfolio.UserPosition
	res.Get("accounts").ForEach(func(_, acct gjson.Result) bool {
		out = append(out, ParsePositions(acct.Get("positions"))...)
		return true
	})
	return out, nil
}

// ParsePositions reads {symbol, sign, position, avg_entry_price,
// position_value, unrealized_pnl, liquidation_price,
// initial_margin_fraction}; the margin fraction is a percentage.
func ParsePositions(arr gjson.Result) []portfolio.UserPosition {
	var out []portfolio.UserPosition
	arr.ForEach(func(_, p gjson.Result) bool {
		size := math.Abs(convert.Number(p.Get("position")))
		sym := strings.ToUpper(p.Get("symbol").String())
		if size == 0 || sym == "" {
			return true
		}
		side := portfolio.Long
		if p.Get("sign").Int() < 0 {
			side = portfolio.Short
		}
		pos := portfolio.UserPosition{
			Symbol:           sym,
			BaseAsset:        sym,
			Side:             side,
			Size:             size,
			EntryPrice:       convert.Number(p.Get("avg_entry_price")),
			LiquidationPrice: convert.Number(p.Get("liquidation_price")),
			UnrealizedPnl:    convert.Number(p.Get("unrealized_pnl")),
		}
		if value := convert.Number(p.Get("position_value")); value > 0 {
			pos.MarkPrice = value / size
		}
		if imf := convert.Number(p.Get("initial_margin_fraction")); imf > 0 {
			pos.Leverage = math.Round(100/imf*100) / 100
		}
		out = append(out, pos)
		return true
	})
	return out
}
