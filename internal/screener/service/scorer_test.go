package service

import (
	"encoding/json"
	"testing"

	"options-income-screener/internal/entity"
	"options-income-screener/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorablePick(strategy entity.Strategy) *entity.ScreenedPick {
	greeks, _ := json.Marshal(map[string]float64{
		"delta": 0.30, "gamma": 0.002, "theta": -0.10, "vega": 0.12,
	})
	pick := &entity.ScreenedPick{
		Symbol:         "XYZ",
		Strategy:       strategy,
		Strike:         95,
		SpotPrice:      100,
		IVRank:         55,
		IVPercentile:   60,
		ROI30D:         0.015,
		TrendStrength:  0.4,
		TrendStability: 0.6,
		OpenInt:        1000,
		SpreadPct:      0.04,
		Greeks:         greeks,
	}
	if strategy == entity.StrategyCashSecuredPut {
		pick.MarginOfSafety = utils.ToPointer(0.075)
	}
	return pick
}

func TestEarningsMultiplier(t *testing.T) {
	cases := []struct {
		days *int
		want float64
	}{
		{utils.ToPointer(6), 0.50},
		{utils.ToPointer(7), 0.70},
		{utils.ToPointer(13), 0.70},
		{utils.ToPointer(14), 0.85},
		{utils.ToPointer(20), 0.85},
		{utils.ToPointer(21), 0.93},
		{utils.ToPointer(29), 0.93},
		{utils.ToPointer(30), 1.00},
		{utils.ToPointer(31), 1.00},
		{nil, 1.00},
	}
	for _, tc := range cases {
		label := "nil"
		if tc.days != nil {
			label = string(rune('0' + *tc.days/10)) + string(rune('0'+*tc.days%10))
		}
		t.Run(label, func(t *testing.T) {
			assert.InDelta(t, tc.want, earningsMultiplier(tc.days), 1e-9)
		})
	}
}

func TestNormalizeMetric(t *testing.T) {
	assert.InDelta(t, 0.5, normalizeMetric(50, 50, 15), 1e-9)
	assert.InDelta(t, 1.0, normalizeMetric(50+3*15, 50, 15), 1e-9)
	assert.InDelta(t, 0.0, normalizeMetric(50-3*15, 50, 15), 1e-9)
	assert.InDelta(t, 1.0, normalizeMetric(1000, 50, 15), 1e-9)
	assert.Equal(t, 0.5, normalizeMetric(10, 10, 0))
}

func TestThetaSubScore(t *testing.T) {
	assert.InDelta(t, 1.0, thetaSubScore(0.10), 1e-9)
	assert.InDelta(t, 1.0, thetaSubScore(0.05), 1e-9)
	assert.InDelta(t, 0.5, thetaSubScore(0.025), 1e-9)
	assert.InDelta(t, 0.8, thetaSubScore(0.18), 1e-9)
	assert.InDelta(t, 0.3, thetaSubScore(0.50), 1e-9)
}

func TestVegaSubScore(t *testing.T) {
	assert.Equal(t, 1.0, vegaSubScore(0.25, 80))
	assert.Equal(t, 0.8, vegaSubScore(0.10, 80))
	assert.Equal(t, 0.9, vegaSubScore(0.05, 20))
	assert.Equal(t, 0.6, vegaSubScore(0.10, 50))
}

func TestScorerScore(t *testing.T) {
	scorer := NewScorer()

	t.Run("score stays in the unit interval", func(t *testing.T) {
		for _, strategy := range []entity.Strategy{entity.StrategyCoveredCall, entity.StrategyCashSecuredPut} {
			pick := scorablePick(strategy)
			score := scorer.Score(pick)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.Equal(t, score, pick.Score)
		}
	})

	t.Run("imminent earnings halve the score", func(t *testing.T) {
		base := scorer.Score(scorablePick(entity.StrategyCoveredCall))

		near := scorablePick(entity.StrategyCoveredCall)
		near.EarningsDaysUntil = utils.ToPointer(5)
		assert.InDelta(t, base*0.50, scorer.Score(near), 1e-9)
	})

	t.Run("below 200SMA penalizes covered calls only", func(t *testing.T) {
		cc := scorablePick(entity.StrategyCoveredCall)
		ccBase := scorer.Score(scorablePick(entity.StrategyCoveredCall))
		cc.Below200SMA = true
		assert.InDelta(t, ccBase*0.85, scorer.Score(cc), 1e-9)

		csp := scorablePick(entity.StrategyCashSecuredPut)
		cspBase := scorer.Score(scorablePick(entity.StrategyCashSecuredPut))
		csp.Below200SMA = true
		assert.InDelta(t, cspBase, scorer.Score(csp), 1e-9)
	})

	t.Run("uptrend boosts cash-secured puts", func(t *testing.T) {
		base := scorer.Score(scorablePick(entity.StrategyCashSecuredPut))
		up := scorablePick(entity.StrategyCashSecuredPut)
		up.InUptrend = true
		assert.InDelta(t, base*1.08, scorer.Score(up), 1e-9)
	})

	t.Run("thin margin of safety is discounted", func(t *testing.T) {
		thin := scorablePick(entity.StrategyCashSecuredPut)
		thin.MarginOfSafety = utils.ToPointer(0.03)
		base := scorablePick(entity.StrategyCashSecuredPut)
		assert.Less(t, scorer.Score(thin), scorer.Score(base))
	})
}

func TestRankPicks(t *testing.T) {
	scorer := NewScorer()
	picks := []entity.ScreenedPick{
		{Symbol: "A", Strategy: entity.StrategyCoveredCall, Score: 0.4},
		{Symbol: "B", Strategy: entity.StrategyCoveredCall, Score: 0.8},
		{Symbol: "C", Strategy: entity.StrategyCashSecuredPut, Score: 0.6},
		{Symbol: "D", Strategy: entity.StrategyCashSecuredPut, Score: 0.9},
	}
	scorer.RankPicks(picks)

	require.Equal(t, 2, picks[0].Rank)
	assert.Equal(t, 1, picks[1].Rank)
	assert.Equal(t, 2, picks[2].Rank)
	assert.Equal(t, 1, picks[3].Rank)
}
