package service

import (
	"context"
	"testing"
	"time"

	"options-income-screener/internal/entity"
	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var screenAsOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func liquidContract(side dto.OptionSide, strike, delta, bid, ask float64, dte int) dto.OptionContract {
	return dto.OptionContract{
		Underlying:   "XYZ",
		Side:         side,
		Strike:       strike,
		Expiry:       screenAsOf.AddDate(0, 0, dte),
		Bid:          bid,
		Ask:          ask,
		Delta:        delta,
		Gamma:        0.002,
		Theta:        -0.08,
		Vega:         0.12,
		IV:           0.35,
		OpenInterest: 1000,
		Volume:       200,
	}
}

func screenSnapshot(contracts ...dto.OptionContract) *dto.SymbolSnapshot {
	return &dto.SymbolSnapshot{
		Symbol: "XYZ",
		Chain: dto.OptionChain{
			Underlying: "XYZ",
			SpotPrice:  100,
			AsOf:       screenAsOf,
			Contracts:  contracts,
		},
	}
}

func screenFeatures() *dto.TechnicalFeatures {
	return &dto.TechnicalFeatures{
		Symbol:    "XYZ",
		SpotPrice: 100,
		IVRank:    60,
		HV60:      utils.ToPointer(0.30),
	}
}

func TestCoveredCallScreener(t *testing.T) {
	ctx := context.Background()
	screener := NewCoveredCallScreener(testLogger(t))

	t.Run("picks the highest annualized ROI contract", func(t *testing.T) {
		low := liquidContract(dto.OptionSideCall, 105, 0.30, 1.50, 1.60, 35)
		high := liquidContract(dto.OptionSideCall, 103, 0.32, 2.50, 2.60, 35)
		pick, err := screener.Screen(ctx, screenSnapshot(low, high), screenFeatures())

		require.NoError(t, err)
		require.NotNil(t, pick)
		assert.Equal(t, entity.StrategyCoveredCall, pick.Strategy)
		assert.Equal(t, 103.0, pick.Strike)
		assert.InDelta(t, 2.55, pick.Mid, 1e-9)
		assert.InDelta(t, 0.0255*365/35, pick.ROIAnnual, 1e-9)
	})

	t.Run("empty delta band yields nil without error", func(t *testing.T) {
		deep := liquidContract(dto.OptionSideCall, 90, 0.80, 10.0, 10.2, 35)
		pick, err := screener.Screen(ctx, screenSnapshot(deep), screenFeatures())
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("below annual income target yields nil", func(t *testing.T) {
		thin := liquidContract(dto.OptionSideCall, 105, 0.30, 0.50, 0.55, 40)
		pick, err := screener.Screen(ctx, screenSnapshot(thin), screenFeatures())
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("rejects low IV rank environments", func(t *testing.T) {
		feats := screenFeatures()
		feats.IVRank = 30
		good := liquidContract(dto.OptionSideCall, 103, 0.30, 2.50, 2.60, 35)
		pick, err := screener.Screen(ctx, screenSnapshot(good), feats)
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("rejects penny stocks", func(t *testing.T) {
		feats := screenFeatures()
		feats.SpotPrice = 8
		pick, err := screener.Screen(ctx, screenSnapshot(), feats)
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("rejects wide spreads and illiquid contracts", func(t *testing.T) {
		wide := liquidContract(dto.OptionSideCall, 103, 0.30, 2.00, 3.00, 35)
		illiquid := liquidContract(dto.OptionSideCall, 103, 0.30, 2.50, 2.60, 35)
		illiquid.OpenInterest = 100
		pick, err := screener.Screen(ctx, screenSnapshot(wide, illiquid), screenFeatures())
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("rejects DTE outside the window", func(t *testing.T) {
		near := liquidContract(dto.OptionSideCall, 103, 0.30, 2.50, 2.60, 10)
		far := liquidContract(dto.OptionSideCall, 103, 0.30, 2.50, 2.60, 90)
		pick, err := screener.Screen(ctx, screenSnapshot(near, far), screenFeatures())
		require.NoError(t, err)
		assert.Nil(t, pick)
	})
}

func TestCashSecuredPutScreener(t *testing.T) {
	ctx := context.Background()
	screener := NewCashSecuredPutScreener(testLogger(t))

	cspFeatures := func() *dto.TechnicalFeatures {
		f := screenFeatures()
		f.IVRank = 60
		return f
	}

	t.Run("selects a qualifying put priced on the strike", func(t *testing.T) {
		put := liquidContract(dto.OptionSidePut, 95, -0.28, 1.80, 1.90, 35)
		snap := screenSnapshot(put)
		pick, err := screener.Screen(ctx, snap, cspFeatures())

		require.NoError(t, err)
		require.NotNil(t, pick)
		assert.Equal(t, entity.StrategyCashSecuredPut, pick.Strategy)
		assert.InDelta(t, 1.85/95, pick.ROIPeriod, 1e-9)
		require.NotNil(t, pick.MarginOfSafety)
		assert.InDelta(t, 0.05, *pick.MarginOfSafety, 1e-9)
	})

	t.Run("excluded when earnings fall inside the window", func(t *testing.T) {
		put := liquidContract(dto.OptionSidePut, 95, -0.28, 1.80, 1.90, 35)
		snap := screenSnapshot(put)
		earnings := screenAsOf.AddDate(0, 0, 5)
		snap.EarningsDate = &earnings

		pick, err := screener.Screen(ctx, snap, cspFeatures())
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("delta band is tighter than covered calls", func(t *testing.T) {
		put := liquidContract(dto.OptionSidePut, 95, -0.33, 1.80, 1.90, 35)
		pick, err := screener.Screen(ctx, screenSnapshot(put), cspFeatures())
		require.NoError(t, err)
		assert.Nil(t, pick)
	})

	t.Run("rejects elevated realized volatility", func(t *testing.T) {
		feats := cspFeatures()
		feats.HV60 = utils.ToPointer(0.60)
		put := liquidContract(dto.OptionSidePut, 95, -0.28, 1.80, 1.90, 35)
		pick, err := screener.Screen(ctx, screenSnapshot(put), feats)
		require.NoError(t, err)
		assert.Nil(t, pick)
	})
}
