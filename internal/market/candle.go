package market

type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume,omitempty"`
}

// Valid reports whether the candle can enter a series.
func (c Candle) Valid() bool {
	return c.Timestamp > 0
}
