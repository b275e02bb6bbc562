package symbol

import "strings"

// coinConverter serves venues that key markets by the bare base asset
// (Hyperliquid "BTC", GMX token symbol, Lighter order book symbol).
type coinConverter struct {
	format Format
}

func (c coinConverter) ToExchange(internal string) string {
	return Base(internal)
}

func (c coinConverter) FromExchange(raw string) string {
	base := strings.ToUpper(strings.TrimSpace(raw))
	if base == "" {
		return ""
	}
	return Symbol{Base: base, Quote: DefaultQuote}.Internal()
}

func (c coinConverter) Format() Format {
	return c.format
}

type DYDXConverter struct{}

func (DYDXConverter) ToExchange(internal string) string {
	sym := Parse(internal)
	if sym.Base == "" {
		return ""
	}
	return sym.Base + "-USD"
}

func (DYDXConverter) FromExchange(raw string) string {
	return Normalize(raw)
}

func (DYDXConverter) Format() Format {
	return FormatDYDX
}

// AsterConverter uses Binance style tickers ("BTCUSDT").
type AsterConverter struct{}

func (AsterConverter) ToExchange(internal string) string {
	sym := Parse(internal)
	if sym.Base == "" {
		return ""
	}
	return sym.Base + "USDT"
}

func (AsterConverter) FromExchange(raw string) string {
	return Parse(raw).Base + "/" + DefaultQuote
}

func (AsterConverter) Format() Format {
	return FormatAster
}

var (
	Hyperliquid Converter = coinConverter{format: FormatHyperliquid}
	GMX         Converter = coinConverter{format: FormatGMX}
	Lighter     Converter = coinConverter{format: FormatLighter}
	DYDX        Converter = DYDXConverter{}
	Aster       Converter = AsterConverter{}
)
