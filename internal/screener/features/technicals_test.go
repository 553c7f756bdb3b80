package features

import (
	"math"
	"testing"
	"time"

	"options-income-screener/internal/screener/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBars(closes []float64) []dto.PriceBar {
	bars := make([]dto.PriceBar, len(closes))
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = dto.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.01,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func linearCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	t.Run("returns nil on short series", func(t *testing.T) {
		assert.Nil(t, SMA([]float64{1, 2, 3}, 5))
	})

	t.Run("averages the last period closes", func(t *testing.T) {
		got := SMA([]float64{1, 2, 3, 4, 5, 6}, 3)
		require.NotNil(t, got)
		assert.InDelta(t, 5.0, *got, 1e-9)
	})
}

func TestHistoricalVolatility(t *testing.T) {
	t.Run("needs period plus one closes", func(t *testing.T) {
		assert.Nil(t, HistoricalVolatility(linearCloses(20, 100, 1), 20))
		assert.NotNil(t, HistoricalVolatility(linearCloses(21, 100, 1), 20))
	})

	t.Run("flat series has zero volatility", func(t *testing.T) {
		got := HistoricalVolatility(linearCloses(61, 100, 0), 60)
		require.NotNil(t, got)
		assert.InDelta(t, 0, *got, 1e-9)
	})

	t.Run("volatility is non-negative", func(t *testing.T) {
		closes := []float64{100, 103, 99, 104, 98, 105, 97, 106, 96, 107, 95, 108, 94, 109, 93, 110, 92, 111, 91, 112, 90}
		got := HistoricalVolatility(closes, 20)
		require.NotNil(t, got)
		assert.Greater(t, *got, 0.0)
	})
}

func TestRSI(t *testing.T) {
	t.Run("all gains is 100", func(t *testing.T) {
		got := RSI(linearCloses(20, 100, 1), 14)
		require.NotNil(t, got)
		assert.InDelta(t, 100, *got, 1e-9)
	})

	t.Run("all losses is 0", func(t *testing.T) {
		got := RSI(linearCloses(20, 100, -1), 14)
		require.NotNil(t, got)
		assert.InDelta(t, 0, *got, 1e-9)
	})

	t.Run("nil on short series", func(t *testing.T) {
		assert.Nil(t, RSI(linearCloses(14, 100, 1), 14))
	})
}

func TestCMF(t *testing.T) {
	t.Run("close at high is full accumulation", func(t *testing.T) {
		bars := make([]dto.PriceBar, 20)
		for i := range bars {
			bars[i] = dto.PriceBar{High: 110, Low: 100, Close: 110, Volume: 1000}
		}
		got := CMF(bars, 20)
		require.NotNil(t, got)
		assert.InDelta(t, 1.0, *got, 1e-9)
	})

	t.Run("nil on short series", func(t *testing.T) {
		assert.Nil(t, CMF(makeBars(linearCloses(10, 100, 1)), 20))
	})

	t.Run("nil without volume", func(t *testing.T) {
		bars := make([]dto.PriceBar, 20)
		for i := range bars {
			bars[i] = dto.PriceBar{High: 110, Low: 100, Close: 105}
		}
		assert.Nil(t, CMF(bars, 20))
	})
}

func TestTrendStrengthBounds(t *testing.T) {
	cases := []struct {
		name   string
		closes []float64
	}{
		{"strong uptrend", linearCloses(250, 50, 1)},
		{"strong downtrend", linearCloses(250, 300, -1)},
		{"flat", linearCloses(250, 100, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sma20 := SMA(tc.closes, 20)
			sma50 := SMA(tc.closes, 50)
			sma200 := SMA(tc.closes, 200)
			rsi := RSI(tc.closes, 14)
			got := TrendStrength(tc.closes, sma20, sma50, sma200, rsi)
			assert.GreaterOrEqual(t, got, -1.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}

	t.Run("uptrend is positive, downtrend negative", func(t *testing.T) {
		up := linearCloses(250, 50, 1)
		down := linearCloses(250, 300, -1)
		upScore := TrendStrength(up, SMA(up, 20), SMA(up, 50), SMA(up, 200), RSI(up, 14))
		downScore := TrendStrength(down, SMA(down, 20), SMA(down, 50), SMA(down, 200), RSI(down, 14))
		assert.Greater(t, upScore, 0.0)
		assert.Less(t, downScore, 0.0)
	})

	t.Run("no inputs yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, TrendStrength(nil, nil, nil, nil, nil))
	})
}

func TestTrendStabilityBounds(t *testing.T) {
	t.Run("smooth trend scores within unit interval", func(t *testing.T) {
		got := TrendStability(makeBars(linearCloses(40, 100, 0.2)), 20)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	})

	t.Run("smooth trend beats choppy series", func(t *testing.T) {
		smooth := TrendStability(makeBars(linearCloses(40, 100, 0.2)), 20)

		choppy := make([]float64, 40)
		for i := range choppy {
			if i%2 == 0 {
				choppy[i] = 100 + 15*math.Mod(float64(i), 3)
			} else {
				choppy[i] = 85
			}
		}
		rough := TrendStability(makeBars(choppy), 20)
		assert.Greater(t, smooth, rough)
	})

	t.Run("zero on short series", func(t *testing.T) {
		assert.Equal(t, 0.0, TrendStability(makeBars(linearCloses(5, 100, 1)), 20))
	})
}

func TestCompute(t *testing.T) {
	t.Run("short history leaves pointer features nil", func(t *testing.T) {
		series := &dto.PriceSeries{Symbol: "XYZ", Bars: makeBars(linearCloses(30, 100, 0.5))}
		f := Compute(series, nil, nil)
		assert.NotNil(t, f.SMA20)
		assert.Nil(t, f.SMA50)
		assert.Nil(t, f.SMA200)
		assert.Nil(t, f.HV60)
		assert.Equal(t, 30, f.BarCount)
		assert.Equal(t, 50.0, f.IVRank)
	})

	t.Run("full history fills everything", func(t *testing.T) {
		series := &dto.PriceSeries{Symbol: "XYZ", Bars: makeBars(linearCloses(250, 50, 0.5))}
		f := Compute(series, nil, nil)
		require.NotNil(t, f.SMA200)
		assert.NotNil(t, f.HV60)
		assert.True(t, f.InUptrend)
		assert.False(t, f.Below200SMA)
	})
}
