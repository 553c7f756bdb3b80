package features

import (
	"math"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/common"
)

// SMA returns the simple moving average of the last period closes,
// or nil when the series is too short.
func SMA(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	avg := sum / float64(period)
	return &avg
}

// HistoricalVolatility returns the annualized standard deviation of the last
// period simple daily returns, or nil when fewer than period+1 closes exist.
func HistoricalVolatility(closes []float64, period int) *float64 {
	if period <= 1 || len(closes) < period+1 {
		return nil
	}
	returns := make([]float64, 0, period)
	tail := closes[len(closes)-period-1:]
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			return nil
		}
		returns = append(returns, tail[i]/tail[i-1]-1)
	}
	hv := stdev(returns) * math.Sqrt(float64(common.TradingDaysPerYear))
	return &hv
}

// RSI returns the relative strength index over the last period changes,
// or nil when the series is too short. With no losing days RSI is 100.
func RSI(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}
	tail := closes[len(closes)-period-1:]
	var gains, losses float64
	for i := 1; i < len(tail); i++ {
		change := tail[i] - tail[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		v := 100.0
		return &v
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	v := 100 - 100/(1+rs)
	return &v
}

// CMF returns the Chaikin Money Flow over the last period bars, or nil when
// the series is too short or volume is absent.
func CMF(bars []dto.PriceBar, period int) *float64 {
	if period <= 0 || len(bars) < period {
		return nil
	}
	var mfvSum, volSum float64
	for _, b := range bars[len(bars)-period:] {
		volSum += b.Volume
		rng := b.High - b.Low
		if rng == 0 {
			continue
		}
		mfm := ((b.Close - b.Low) - (b.High - b.Close)) / rng
		mfvSum += mfm * b.Volume
	}
	if volSum == 0 {
		return nil
	}
	v := mfvSum / volSum
	return &v
}

// TrendStrength blends four bounded components into a [-1, 1] trend reading:
// price vs SMA50 (0.40), SMA alignment (0.30), RSI-centered momentum with an
// SMA-difference fallback (0.20), and 5-day momentum (0.10).
func TrendStrength(closes []float64, sma20, sma50, sma200, rsi14 *float64) float64 {
	spot := 0.0
	if len(closes) > 0 {
		spot = closes[len(closes)-1]
	}

	var score, weight float64

	if sma50 != nil && *sma50 > 0 {
		score += 0.40 * clamp((spot / *sma50 - 1) / 0.10, -1, 1)
		weight += 0.40
	}

	if sma20 != nil && sma50 != nil && sma200 != nil {
		align := 0.0
		align += sign(*sma20 - *sma50)
		align += sign(*sma50 - *sma200)
		score += 0.30 * (align / 2)
		weight += 0.30
	}

	switch {
	case rsi14 != nil:
		score += 0.20 * clamp((*rsi14-50)/50, -1, 1)
		weight += 0.20
	case sma20 != nil && sma50 != nil && *sma50 > 0:
		score += 0.20 * clamp((*sma20 - *sma50) / *sma50 / 0.05, -1, 1)
		weight += 0.20
	}

	if len(closes) >= 10 {
		recent := mean(closes[len(closes)-5:])
		prior := mean(closes[len(closes)-10 : len(closes)-5])
		if prior > 0 {
			score += 0.10 * clamp((recent/prior-1)/0.05, -1, 1)
			weight += 0.10
		}
	}

	if weight == 0 {
		return 0
	}
	return clamp(score/weight, -1, 1)
}

// TrendStability blends three [0, 1] terms into how orderly the recent trend
// is: inverted price coefficient of variation (0.40), directional-day
// consistency (0.30), and inverted ATR-to-price (0.30) with a
// return-volatility fallback when high/low data is missing.
func TrendStability(bars []dto.PriceBar, period int) float64 {
	if period <= 1 || len(bars) < period {
		return 0
	}
	window := bars[len(bars)-period:]
	closes := make([]float64, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}

	var score, weight float64

	m := mean(closes)
	if m > 0 {
		cv := stdev(closes) / m
		score += 0.40 * (1 - clamp(cv/0.10, 0, 1))
		weight += 0.40
	}

	var up, down int
	for i := 1; i < len(closes); i++ {
		if closes[i] > closes[i-1] {
			up++
		} else if closes[i] < closes[i-1] {
			down++
		}
	}
	if up+down > 0 {
		consistency := float64(max(up, down)) / float64(up+down)
		score += 0.30 * consistency
		weight += 0.30
	}

	spot := closes[len(closes)-1]
	if spot > 0 {
		var trSum float64
		var trCount int
		for i := 1; i < len(window); i++ {
			if window[i].High == 0 && window[i].Low == 0 {
				continue
			}
			tr := math.Max(window[i].High-window[i].Low,
				math.Max(math.Abs(window[i].High-window[i-1].Close),
					math.Abs(window[i].Low-window[i-1].Close)))
			trSum += tr
			trCount++
		}
		if trCount > 0 {
			score += 0.30 * (1 - clamp(trSum/float64(trCount)/spot/0.05, 0, 1))
			weight += 0.30
		} else {
			// no high/low data, fall back to daily-return volatility
			returns := make([]float64, 0, len(closes)-1)
			for i := 1; i < len(closes); i++ {
				if closes[i-1] != 0 {
					returns = append(returns, closes[i]/closes[i-1]-1)
				}
			}
			if len(returns) > 1 {
				score += 0.30 * (1 - clamp(stdev(returns)/0.03, 0, 1))
				weight += 0.30
			}
		}
	}

	if weight == 0 {
		return 0
	}
	return clamp(score/weight, 0, 1)
}

// SupportLevel returns the lowest low over the last period bars, or nil when
// the series is too short or low data is missing.
func SupportLevel(bars []dto.PriceBar, period int) *float64 {
	if period <= 0 || len(bars) < period {
		return nil
	}
	low := math.Inf(1)
	for _, b := range bars[len(bars)-period:] {
		if b.Low > 0 && b.Low < low {
			low = b.Low
		}
	}
	if math.IsInf(low, 1) {
		return nil
	}
	return &low
}

// Compute builds the full normalized feature set for one symbol from its
// price history and chain snapshot.
func Compute(series *dto.PriceSeries, chain *dto.OptionChain, ivHistory []float64) *dto.TechnicalFeatures {
	closes := series.Closes()

	f := &dto.TechnicalFeatures{
		Symbol:    series.Symbol,
		SpotPrice: series.LastClose(),
		SMA20:     SMA(closes, 20),
		SMA50:     SMA(closes, 50),
		SMA200:    SMA(closes, 200),
		HV20:      HistoricalVolatility(closes, 20),
		HV60:      HistoricalVolatility(closes, 60),
		RSI14:     RSI(closes, 14),
		CMF20:     CMF(series.Bars, 20),
		SupportLevel: SupportLevel(series.Bars, 20),
		BarCount:  len(series.Bars),
	}

	if chain != nil && chain.SpotPrice > 0 {
		f.SpotPrice = chain.SpotPrice
	}

	f.TrendStrength = TrendStrength(closes, f.SMA20, f.SMA50, f.SMA200, f.RSI14)
	f.TrendStability = TrendStability(series.Bars, 20)
	f.Below200SMA = f.SMA200 != nil && f.SpotPrice < *f.SMA200
	f.InUptrend = f.SMA20 != nil && f.SMA50 != nil && f.SMA200 != nil &&
		*f.SMA20 > *f.SMA50 && *f.SMA50 > *f.SMA200

	if chain != nil {
		f.ATMIV = ATMImpliedVolatility(chain)
	}
	current := 0.0
	if f.ATMIV != nil {
		current = *f.ATMIV
	}
	f.IVRank = IVRank(current, ivHistory)
	f.IVPercentile = IVPercentile(current, ivHistory)

	return f
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
