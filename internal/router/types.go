package router

import (
	"context"
	"encoding/json"
	"time"

	"perpdesk/internal/market"
)

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// TPSL holds optional take-profit and stop-loss trigger prices; 0 means unset.
type TPSL struct {
	TakeProfit float64 `json:"takeProfit,omitempty"`
	StopLoss   float64 `json:"stopLoss,omitempty"`
}

// UnifiedOrderRequest is the venue-neutral order the UI submits.
type UnifiedOrderRequest struct {
	Exchange   market.Exchange `json:"exchange"`
	Asset      string          `json:"asset"`
	Side       market.Side     `json:"side"`
	Size       float64         `json:"size"`
	Price      float64         `json:"price,omitempty"`
	Type       OrderType       `json:"type"`
	Leverage   float64         `json:"leverage,omitempty"`
	ReduceOnly bool            `json:"reduceOnly,omitempty"`
	TPSL       *TPSL           `json:"tpsl,omitempty"`
	// ClientID is assigned by the router when empty.
	ClientID string `json:"clientId,omitempty"`
}

type CancelRequest struct {
	Exchange market.Exchange `json:"exchange"`
	Asset    string          `json:"asset"`
	OrderID  string          `json:"orderId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
}

// OrderResult is returned for every placement or cancel attempt; failures
// are carried in Success and Message rather than as errors.
type OrderResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	OrderID  string          `json:"orderId,omitempty"`
	Exchange market.Exchange `json:"exchange"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Placer translates unified requests to one venue's order API.
type Placer interface {
	Place(ctx context.Context, req UnifiedOrderRequest) (OrderResult, error)
	Cancel(ctx context.Context, req CancelRequest) (OrderResult, error)
}

type Action string

const (
	ActionPlace  Action = "place"
	ActionCancel Action = "cancel"
)

// Entry is one journaled router call.
type Entry struct {
	Action   Action          `json:"action"`
	Exchange market.Exchange `json:"exchange"`
	Asset    string          `json:"asset"`
	ClientID string          `json:"clientId,omitempty"`
	Request  any             `json:"request"`
	Result   OrderResult     `json:"result"`
	Latency  time.Duration   `json:"latency"`
	At       time.Time       `json:"at"`
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
}

func Failed(ex market.Exchange, msg string) OrderResult {
	return OrderResult{Success: false, Message: msg, Exchange: ex}
}
