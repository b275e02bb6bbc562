package market

import "strings"

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Opposite() Side {
	if s == Sell {
		return Buy
	}
	return Sell
}

// DecodeSide maps the side encodings seen across venues to buy or sell.
// Strings: buy/b/bid/bids/long and sell/s/a/ask/asks/offer/short, any case,
// which covers Hyperliquid's "B"/"A". Booleans are read as isBuyerMaker.
func DecodeSide(v any) (Side, bool) {
	switch t := v.(type) {
	case Side:
		return DecodeSide(string(t))
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "buy", "b", "bid", "bids", "long":
			return Buy, true
		case "sell", "s", "a", "ask", "asks", "offer", "short":
			return Sell, true
		}
	case bool:
		return SideFromBuyerMaker(t), true
	}
	return "", false
}

// ParseSide is DecodeSide with unrecognized input treated as a buy.
func ParseSide(v any) Side {
	if side, ok := DecodeSide(v); ok {
		return side
	}
	return Buy
}

// SideFromBuyerMaker: a resting buyer means the aggressor sold.
func SideFromBuyerMaker(isBuyerMaker bool) Side {
	if isBuyerMaker {
		return Sell
	}
	return Buy
}

// SideFromMakerAsk: a resting ask means the aggressor bought.
func SideFromMakerAsk(isMakerAsk bool) Side {
	if isMakerAsk {
		return Buy
	}
	return Sell
}
