package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	for _, in := range []any{"buy", "B", "bid", "LONG", " b ", false, Buy} {
		assert.Equal(t, Buy, ParseSide(in), "%v", in)
	}
	for _, in := range []any{"sell", "A", "ask", "short", "S", "offer", true, Sell} {
		assert.Equal(t, Sell, ParseSide(in), "%v", in)
	}
	for _, in := range []any{"", "sideways", 1, nil} {
		assert.Equal(t, Buy, ParseSide(in), "%v", in)
		_, ok := DecodeSide(in)
		assert.False(t, ok, "%v", in)
	}
}

func TestMakerHelpers(t *testing.T) {
	assert.Equal(t, Sell, SideFromBuyerMaker(true))
	assert.Equal(t, Buy, SideFromBuyerMaker(false))
	assert.Equal(t, Buy, SideFromMakerAsk(true))
	assert.Equal(t, Sell, SideFromMakerAsk(false))
	assert.Equal(t, Sell, Buy.Opposite())
}

func TestParseExchange(t *testing.T) {
	ex, ok := ParseExchange(" Hyperliquid ")
	assert.True(t, ok)
	assert.Equal(t, Hyperliquid, ex)
	_, ok = ParseExchange("binance")
	assert.False(t, ok)
}
