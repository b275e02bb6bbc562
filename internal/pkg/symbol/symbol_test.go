package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Symbol{
		"BTC":       {Base: "BTC", Quote: "USD"},
		"btc-usd":   {Base: "BTC", Quote: "USD"},
		"ETH/USDC":  {Base: "ETH", Quote: "USDC"},
		"SOLUSDT":   {Base: "SOL", Quote: "USDT"},
		"ETH-PERP":  {Base: "ETH", Quote: "USD"},
		"ARB/USD:X": {Base: "ARB", Quote: "USD"},
		"":          {},
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
}

func TestVenueConverters(t *testing.T) {
	assert.Equal(t, "BTC", Hyperliquid.ToExchange("BTC/USD"))
	assert.Equal(t, "BTC-USD", DYDX.ToExchange("btc"))
	assert.Equal(t, "BTCUSDT", Aster.ToExchange("BTC-USD"))
	assert.Equal(t, "ETH", GMX.ToExchange("ETHUSDT"))

	assert.Equal(t, "BTC/USD", Hyperliquid.FromExchange("btc"))
	assert.Equal(t, "BTC/USD", DYDX.FromExchange("BTC-USD"))
	assert.Equal(t, "BTC/USD", Aster.FromExchange("BTCUSDT"))
}

func TestFor(t *testing.T) {
	c, ok := For(FormatLighter)
	assert.True(t, ok)
	assert.Equal(t, FormatLighter, c.Format())
	_, ok = For(FormatInternal)
	assert.False(t, ok)
}
