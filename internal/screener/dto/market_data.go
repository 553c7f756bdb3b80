package dto

import "time"

// PriceBar is one daily OHLCV bar.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a chronologically ascending run of daily bars for one symbol.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Closes returns the close prices in bar order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// LastClose returns the most recent close, or 0 when the series is empty.
func (s *PriceSeries) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// OptionSide is the contract side.
type OptionSide string

const (
	OptionSideCall OptionSide = "call"
	OptionSidePut  OptionSide = "put"
)

// OptionContract is one option chain entry as returned by the market data provider.
type OptionContract struct {
	Symbol       string     `json:"symbol"`
	Underlying   string     `json:"underlying"`
	Side         OptionSide `json:"side"`
	Strike       float64    `json:"strike"`
	Expiry       time.Time  `json:"expiry"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	LastPrice    float64    `json:"last_price"`
	Delta        float64    `json:"delta"`
	Gamma        float64    `json:"gamma"`
	Theta        float64    `json:"theta"`
	Vega         float64    `json:"vega"`
	IV           float64    `json:"iv"`
	OpenInterest int64      `json:"open_interest"`
	Volume       int64      `json:"volume"`
}

// Mid returns the bid/ask midpoint, falling back to the last trade when the
// book is one-sided or empty.
func (c *OptionContract) Mid() float64 {
	if c.Bid > 0 && c.Ask > 0 {
		return (c.Bid + c.Ask) / 2
	}
	return c.LastPrice
}

// SpreadPct returns the relative bid/ask spread. A one-sided book counts as
// maximally wide so the liquidity filter rejects it.
func (c *OptionContract) SpreadPct() float64 {
	mid := c.Mid()
	if mid <= 0 || c.Bid <= 0 || c.Ask <= 0 {
		return 1.0
	}
	return (c.Ask - c.Bid) / mid
}

// OptionChain is the full chain snapshot for one underlying.
type OptionChain struct {
	Underlying string           `json:"underlying"`
	SpotPrice  float64          `json:"spot_price"`
	AsOf       time.Time        `json:"as_of"`
	Contracts  []OptionContract `json:"contracts"`
}

// Calls returns the call side of the chain.
func (ch *OptionChain) Calls() []OptionContract {
	return ch.filter(OptionSideCall)
}

// Puts returns the put side of the chain.
func (ch *OptionChain) Puts() []OptionContract {
	return ch.filter(OptionSidePut)
}

func (ch *OptionChain) filter(side OptionSide) []OptionContract {
	var out []OptionContract
	for _, c := range ch.Contracts {
		if c.Side == side {
			out = append(out, c)
		}
	}
	return out
}

// SymbolSnapshot bundles everything the pipeline fetches for one symbol.
type SymbolSnapshot struct {
	Symbol        string      `json:"symbol"`
	Prices        PriceSeries `json:"prices"`
	Chain         OptionChain `json:"chain"`
	IVHistory     []float64   `json:"iv_history"`
	EarningsDate  *time.Time  `json:"earnings_date"`
	DividendYield *float64    `json:"dividend_yield"`
}
