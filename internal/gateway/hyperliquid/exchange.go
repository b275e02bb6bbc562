package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/router"
	"perpdesk/internal/signer"

	"github.com/tidwall/gjson"
)

// DefaultSlippage bounds the IOC limit price used for market orders.
const DefaultSlippage = 0.05

type exchangeRequest struct {
	Action       any              `json:"action"`
	Nonce        int64            `json:"nonce"`
	Signature    signer.Signature `json:"signature"`
	VaultAddress *string          `json:"vaultAddress"`
}

// Placer sends signed order actions to /exchange.
type Placer struct {
	c        *Client
	signer   signer.Signer
	slippage float64

	nonceMu   sync.Mutex
	lastNonce int64
}

func (c *Client) Placer(s signer.Signer) *Placer {
	return &Placer{c: c, signer: s, slippage: DefaultSlippage}
}

func (p *Placer) nextNonce() int64 {
	p.nonceMu.Lock()
	defer p.nonceMu.Unlock()
	n := p.c.now().UnixMilli()
	if n <= p.lastNonce {
		n = p.lastNonce + 1
	}
	p.lastNonce = n
	return n
}

func (p *Placer) Place(ctx context.Context, req router.UnifiedOrderRequest) (router.OrderResult, error) {
	if p.signer == nil {
		return router.Failed(market.Hyperliquid, signer.ErrNotConfigured.Error()), nil
	}
	coin := symbol.Hyperliquid.ToExchange(req.Asset)
	asset, err := p.c.Asset(ctx, coin)
	if err != nil {
		return router.OrderResult{}, err
	}
	if req.Leverage > 0 {
		lev := leverageAction{Type: "updateLeverage", Asset: asset.Index, IsCross: true, Leverage: roundLeverage(req.Leverage)}
		if _, err := p.send(ctx, lev); err != nil {
			return router.OrderResult{}, fmt.Errorf("update leverage: %w", err)
		}
	}

	isBuy := req.Side == market.Buy
	size := RoundSize(req.Size, asset.SzDecimals)
	if size <= 0 {
		return router.Failed(market.Hyperliquid, fmt.Sprintf("size %v is below the %s lot size", req.Size, coin)), nil
	}
	price := req.Price
	tif := "Gtc"
	if req.Type == router.Market {
		mid, err := p.c.Mid(ctx, coin)
		if err != nil {
			return router.OrderResult{}, err
		}
		price = mid * (1 - p.slippage)
		if isBuy {
			price = mid * (1 + p.slippage)
		}
		tif = "Ioc"
	}
	main := orderWire{
		Asset:      asset.Index,
		IsBuy:      isBuy,
		Price:      FloatToWire(RoundPrice(price, asset.SzDecimals)),
		Size:       FloatToWire(size),
		ReduceOnly: req.ReduceOnly,
		Type:       orderTypeWire{Limit: &limitWire{Tif: tif}},
		Cloid:      Cloid(req.ClientID),
	}
	action := orderAction{Type: "order", Orders: []orderWire{main}, Grouping: "na"}
	if req.TPSL != nil {
		action.Grouping = "normalTpsl"
		if req.TPSL.TakeProfit > 0 {
			action.Orders = append(action.Orders, triggerOrder(asset, !isBuy, size, req.TPSL.TakeProfit, "tp"))
		}
		if req.TPSL.StopLoss > 0 {
			action.Orders = append(action.Orders, triggerOrder(asset, !isBuy, size, req.TPSL.StopLoss, "sl"))
		}
	}
	res, err := p.send(ctx, action)
	if err != nil {
		return router.OrderResult{}, err
	}
	return resultFrom(res), nil
}

func triggerOrder(asset AssetMeta, isBuy bool, size, trigger float64, kind string) orderWire {
	px := FloatToWire(RoundPrice(trigger, asset.SzDecimals))
	return orderWire{
		Asset:      asset.Index,
		IsBuy:      isBuy,
		Price:      px,
		Size:       FloatToWire(size),
		ReduceOnly: true,
		Type:       orderTypeWire{Trigger: &triggerWire{IsMarket: true, TriggerPx: px, Tpsl: kind}},
	}
}

func (p *Placer) Cancel(ctx context.Context, req router.CancelRequest) (router.OrderResult, error) {
	if p.signer == nil {
		return router.Failed(market.Hyperliquid, signer.ErrNotConfigured.Error()), nil
	}
	asset, err := p.c.Asset(ctx, symbol.Hyperliquid.ToExchange(req.Asset))
	if err != nil {
		return router.OrderResult{}, err
	}
	var action any
	if oid, err := strconv.ParseInt(req.OrderID, 10, 64); err == nil && oid > 0 {
		action = cancelAction{Type: "cancel", Cancels: []cancelWire{{Asset: asset.Index, Oid: oid}}}
	} else if req.ClientID != "" {
		action = cancelByCloidAction{Type: "cancelByCloid", Cancels: []cancelCloidWire{{Asset: asset.Index, Cloid: Cloid(req.ClientID)}}}
	} else {
		return router.Failed(market.Hyperliquid, fmt.Sprintf("invalid order id %q", req.OrderID)), nil
	}
	res, err := p.send(ctx, action)
	if err != nil {
		return router.OrderResult{}, err
	}
	out := resultFrom(res)
	if out.OrderID == "" {
		out.OrderID = req.OrderID
	}
	return out, nil
}

func (p *Placer) send(ctx context.Context, action any) (gjson.Result, error) {
	nonce := p.nextNonce()
	sig, err := SignAction(p.signer, action, nonce, p.c.cfg.Testnet)
	if err != nil {
		return gjson.Result{}, err
	}
	res, err := p.c.rest.Post(ctx, "/exchange", exchangeRequest{Action: action, Nonce: nonce, Signature: sig})
	if err != nil {
		return gjson.Result{}, err
	}
	if st := res.Get("status").String(); st != "ok" {
		return res, fmt.Errorf("hyperliquid: %s", strings.TrimSpace(res.Get("response").String()))
	}
	return res, nil
}

// resultFrom reads the first status of an /exchange response:
// {"resting":{"oid"}}, {"filled":{"oid","totalSz","avgPx"}}, {"error"} or "success".
func resultFrom(res gjson.Result) router.OrderResult {
	out := router.OrderResult{Exchange: market.Hyperliquid, Raw: json.RawMessage(res.Raw)}
	statuses := res.Get("response.data.statuses").Array()
	if len(statuses) == 0 {
		out.Success = true
		return out
	}
	st := statuses[0]
	switch {
	case st.Get("error").Exists():
		out.Message = st.Get("error").String()
	case st.Get("resting").Exists():
		out.Success = true
		out.OrderID = st.Get("resting.oid").String()
		out.Message = "resting"
	case st.Get("filled").Exists():
		out.Success = true
		out.OrderID = st.Get("filled.oid").String()
		out.Message = fmt.Sprintf("filled %s @ %s", st.Get("filled.totalSz").String(), st.Get("filled.avgPx").String())
	case st.String() == "success":
		out.Success = true
		out.Message = "success"
	default:
		out.Message = st.String()
	}
	return out
}
