package gmx

import (
	"context"
	"errors"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ErrNoGraphQL is returned when no positions indexer is configured.
var ErrNoGraphQL = errors.New("gmx: graphql_url not configured")

const positionsQuery = `query Positions($account: String!) {
  positions(where: {account_eq: $account, sizeInUsd_gt: 0}) {
    id
    market
    collateralToken
    isLong
    sizeInUsd
    sizeInTokens
    collateralAmount
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Market maps a GM market token to its index and collateral tokens.
type Market struct {
	MarketToken string
	IndexToken  string
	LongToken   string
	ShortToken  string
}

// Account reads open positions from the GMX subsquid indexer and prices
// them with the oracle tickers.
type Account struct {
	c *Client
}

func (c *Client) Account() *Account {
	return &Account{c: c}
}

func (a *Account) Name() market.Exchange {
	return market.GMX
}

func (c *Client) Markets(ctx context.Context) (map[string]Market, error) {
	res, err := c.rest.Get(ctx, "/markets", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Market)
	res.Get("markets").ForEach(func(_, m gjson.Result) bool {
		mk := Market{
			MarketToken: strings.ToLower(m.Get("marketToken").String()),
			IndexToken:  strings.ToLower(m.Get("indexToken").String()),
			LongToken:   strings.ToLower(m.Get("longToken").String()),
			ShortToken:  strings.ToLower(m.Get("shortToken").String()),
		}
		if mk.MarketToken != "" {
			out[mk.MarketToken] = mk
		}
		return true
	})
	return out, nil
}

func (a *Account) FetchUserPositions(ctx context.Context, address string) ([]portfolio.UserPosition, error) {
	if a.c.graphql == nil {
		return nil, ErrNoGraphQL
	}
	res, err := a.c.graphql.Post(ctx, "", graphQLRequest{
		Query:     positionsQuery,
		Variables: map[string]any{"account": address},
	})
	if err != nil {
		return nil, err
	}
	if errs := res.Get("errors"); errs.Exists() && len(errs.Array()) > 0 {
		return nil, errors.New("gmx graphql: " + errs.Get("0.message").String())
	}
	markets, err := a.c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	tokens, err := a.c.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	tickers, err := a.c.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePositions(res.Get("data.positions"), markets, tokens, tickers), nil
}

// ParsePositions prices raw indexer positions. Entry is sizeInUsd over
// sizeInTokens, the mark is the oracle mid and leverage is size over the
// collateral value.
func ParsePositions(arr gjson.Result, markets map[string]Market, tokens map[string]Token, tickers map[string]Ticker) []portfolio.UserPosition {
	var out []portfolio.UserPosition
	arr.ForEach(func(_, p gjson.Result) bool {
		mk, ok := markets[strings.ToLower(p.Get("market").String())]
		if !ok {
			return true
		}
		index, ok := tokens[mk.IndexToken]
		if !ok {
			return true
		}
		sizeUsd := decimal.NewFromFloat(usd(p.Get("sizeInUsd").String()))
		size := tokenAmount(p.Get("sizeInTokens").String(), index.Decimals)
		if size.IsZero() || sizeUsd.IsZero() {
			return true
		}
		side := portfolio.Short
		if p.Get("isLong").Bool() {
			side = portfolio.Long
		}
		entry := sizeUsd.Div(size)
		pos := portfolio.UserPosition{
			Symbol:     index.Symbol,
			BaseAsset:  index.Symbol,
			Side:       side,
			Size:       size.InexactFloat64(),
			EntryPrice: entry.Round(8).InexactFloat64(),
		}
		if tk, ok := tickers[index.Symbol]; ok {
			mark := decimal.NewFromFloat(tk.Mid())
			pnl := mark.Sub(entry).Mul(size)
			if side == portfolio.Short {
				pnl = pnl.Neg()
			}
			pos.MarkPrice = tk.Mid()
			pos.UnrealizedPnl = pnl.Round(6).InexactFloat64()
		}
		collToken := strings.ToLower(p.Get("collateralToken").String())
		if coll, ok := tokens[collToken]; ok {
			if tk, ok := tickers[coll.Symbol]; ok {
				collUsd := tokenAmount(p.Get("collateralAmount").String(), coll.Decimals).Mul(decimal.NewFromFloat(tk.Mid()))
				if collUsd.IsPositive() {
					pos.Leverage = sizeUsd.Div(collUsd).Round(2).InexactFloat64()
				}
			}
		}
		out = append(out, pos)
		return true
	})
	return out
}
