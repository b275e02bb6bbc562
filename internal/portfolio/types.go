package portfolio

import (
	"context"
	"fmt"
	"strings"

	"perpdesk/internal/market"

	"github.com/shopspring/decimal"
)

type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// SideFromSigned maps a signed position size to long or short.
func SideFromSigned(size float64) PositionSide {
	if size < 0 {
		return Short
	}
	return Long
}

// UserPosition is the venue-independent position. Size is never negative;
// direction is carried by Side.
type UserPosition struct {
	ID                   string          `json:"id"`
	Symbol               string          `json:"symbol"`
	BaseAsset            string          `json:"baseAsset"`
	Side                 PositionSide    `json:"side"`
	Size                 float64         `json:"size"`
	EntryPrice           float64         `json:"entryPrice"`
	MarkPrice            float64         `json:"markPrice"`
	LiquidationPrice     float64         `json:"liquidationPrice"`
	UnrealizedPnl        float64         `json:"unrealizedPnl"`
	UnrealizedPnlPercent float64         `json:"unrealizedPnlPercent"`
	Leverage             float64         `json:"leverage"`
	Exchange             market.Exchange `json:"exchange"`
}

type OpenOrder struct {
	ID         string          `json:"id"`
	Exchange   market.Exchange `json:"exchange"`
	Symbol     string          `json:"symbol"`
	Side       market.Side     `json:"side"`
	Type       string          `json:"type"`
	Size       float64         `json:"size"`
	Price      float64         `json:"price"`
	ReduceOnly bool            `json:"reduceOnly"`
	Timestamp  int64           `json:"timestamp"`
}

type Fill struct {
	ID        string          `json:"id"`
	Exchange  market.Exchange `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Side      market.Side     `json:"side"`
	Price     float64         `json:"price"`
	Size      float64         `json:"size"`
	Fee       float64         `json:"fee"`
	Timestamp int64           `json:"timestamp"`
}

// Adapter fetches one venue's positions for a wallet address.
type Adapter interface {
	Name() market.Exchange
	FetchUserPositions(ctx context.Context, address string) ([]UserPosition, error)
}

// OrderLister is implemented by adapters that can list resting orders.
type OrderLister interface {
	FetchOpenOrders(ctx context.Context, address string) ([]OpenOrder, error)
}

// FillLister is implemented by adapters that can list recent fills.
type FillLister interface {
	FetchFills(ctx context.Context, address string) ([]Fill, error)
}

// PositionID is the stable identity of a position within the aggregate.
func PositionID(ex market.Exchange, symbol string, side PositionSide) string {
	return fmt.Sprintf("%s-%s-%s", ex, strings.ToUpper(symbol), side)
}

// PnLPercent returns pnl as a percentage of the posted margin
// (size*entry/leverage). Leverage <= 0 is treated as 1x.
func PnLPercent(pnl, size, entry, leverage float64) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	margin := decimal.NewFromFloat(size).Abs().
		Mul(decimal.NewFromFloat(entry)).
		Div(decimal.NewFromFloat(leverage))
	if margin.IsZero() {
		return 0
	}
	return decimal.NewFromFloat(pnl).Div(margin).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
}

// Finalize fills the derived fields a venue adapter leaves empty.
func (p *UserPosition) Finalize(ex market.Exchange) {
	p.Exchange = ex
	if p.Size < 0 {
		p.Size = -p.Size
	}
	if p.BaseAsset == "" {
		p.BaseAsset = p.Symbol
	}
	if p.ID == "" {
		p.ID = PositionID(ex, p.Symbol, p.Side)
	}
	if p.UnrealizedPnlPercent == 0 && p.UnrealizedPnl != 0 {
		p.UnrealizedPnlPercent = PnLPercent(p.UnrealizedPnl, p.Size, p.EntryPrice, p.Leverage)
	}
}
