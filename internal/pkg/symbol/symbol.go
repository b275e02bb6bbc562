package symbol

import (
	"strings"
)

type Format string

const (
	FormatInternal    Format = "internal"
	FormatHyperliquid Format = "hyperliquid"
	FormatDYDX        Format = "dydx"
	FormatGMX         Format = "gmx"
	FormatLighter     Format = "lighter"
	FormatAster       Format = "aster"
)

// Converter maps the internal "BASE/QUOTE" form to a venue market name and back.
type Converter interface {
	ToExchange(internal string) string

	FromExchange(raw string) string

	Format() Format
}

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// DefaultQuote is assumed for bare base assets such as "BTC"; perp venues
// here settle in USD or a USD stablecoin.
const DefaultQuote = "USD"

var quoteCurrencies = []string{"USDT", "USDC", "USD"}

func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSuffix(s, "-PERP")
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			base := strings.TrimSpace(parts[0])
			quote := strings.TrimSpace(parts[1])
			if base == "" {
				return Symbol{}
			}
			if quote == "" {
				quote = DefaultQuote
			}
			return Symbol{Base: base, Quote: quote}
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{Base: s, Quote: DefaultQuote}
}

func Normalize(s string) string {
	return Parse(s).Internal()
}

// Base returns just the base asset ("BTC" for "BTC-USD", "BTCUSDT", "btc").
func Base(s string) string {
	return Parse(s).Base
}

func IsValid(s string) bool {
	sym := Parse(s)
	return sym.Base != "" && sym.Quote != ""
}

// For returns the converter registered for a venue format.
func For(f Format) (Converter, bool) {
	switch f {
	case FormatHyperliquid:
		return Hyperliquid, true
	case FormatDYDX:
		return DYDX, true
	case FormatGMX:
		return GMX, true
	case FormatLighter:
		return Lighter, true
	case FormatAster:
		return Aster, true
	default:
		return nil, false
	}
}
