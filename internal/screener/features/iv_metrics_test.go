package features

import (
	"testing"
	"time"

	"options-income-screener/internal/screener/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIVRank(t *testing.T) {
	history := []float64{0.20, 0.30, 0.40, 0.60}

	t.Run("positions current within range", func(t *testing.T) {
		assert.InDelta(t, 50.0, IVRank(0.40, history), 1e-9)
		assert.InDelta(t, 0.0, IVRank(0.20, history), 1e-9)
		assert.InDelta(t, 100.0, IVRank(0.60, history), 1e-9)
	})

	t.Run("clamps beyond range", func(t *testing.T) {
		assert.InDelta(t, 100.0, IVRank(0.90, history), 1e-9)
		assert.InDelta(t, 0.0, IVRank(0.10, history), 1e-9)
	})

	t.Run("defaults to 50", func(t *testing.T) {
		assert.Equal(t, 50.0, IVRank(0.40, nil))
		assert.Equal(t, 50.0, IVRank(0.40, []float64{0.3}))
		assert.Equal(t, 50.0, IVRank(0.40, []float64{0.3, 0.3, 0.3}))
		assert.Equal(t, 50.0, IVRank(0, history))
	})
}

func TestIVPercentile(t *testing.T) {
	history := []float64{0.20, 0.30, 0.40, 0.60}

	assert.InDelta(t, 75.0, IVPercentile(0.50, history), 1e-9)
	assert.InDelta(t, 0.0, IVPercentile(0.10, history), 1e-9)
	assert.InDelta(t, 100.0, IVPercentile(0.70, history), 1e-9)
	assert.Equal(t, 50.0, IVPercentile(0.50, nil))
}

func TestATMImpliedVolatility(t *testing.T) {
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	goodExpiry := asOf.AddDate(0, 0, 30)

	t.Run("averages call and put sides near the money", func(t *testing.T) {
		chain := &dto.OptionChain{
			Underlying: "XYZ",
			SpotPrice:  100,
			AsOf:       asOf,
			Contracts: []dto.OptionContract{
				{Side: dto.OptionSideCall, Strike: 100, Expiry: goodExpiry, IV: 0.30, Volume: 100, OpenInterest: 100},
				{Side: dto.OptionSidePut, Strike: 100, Expiry: goodExpiry, IV: 0.40, Volume: 100, OpenInterest: 100},
			},
		}
		got := ATMImpliedVolatility(chain)
		require.NotNil(t, got)
		assert.InDelta(t, 0.35, *got, 1e-9)
	})

	t.Run("ignores contracts outside the DTE and strike bands", func(t *testing.T) {
		chain := &dto.OptionChain{
			Underlying: "XYZ",
			SpotPrice:  100,
			AsOf:       asOf,
			Contracts: []dto.OptionContract{
				{Side: dto.OptionSideCall, Strike: 100, Expiry: asOf.AddDate(0, 0, 90), IV: 0.90, Volume: 100},
				{Side: dto.OptionSideCall, Strike: 150, Expiry: goodExpiry, IV: 0.90, Volume: 100},
			},
		}
		assert.Nil(t, ATMImpliedVolatility(chain))
	})

	t.Run("nil on empty chain", func(t *testing.T) {
		assert.Nil(t, ATMImpliedVolatility(nil))
		assert.Nil(t, ATMImpliedVolatility(&dto.OptionChain{SpotPrice: 100}))
	})
}
