package service

import (
	"encoding/json"
	"math"
	"sort"

	"options-income-screener/internal/entity"
	"options-income-screener/pkg/common"
)

// Scorer computes the composite quality score for screened picks and assigns
// per-strategy ranks.
type Scorer interface {
	Score(pick *entity.ScreenedPick) float64
	RankPicks(picks []entity.ScreenedPick)
}

// NewScorer creates a new composite scorer.
func NewScorer() Scorer {
	return &scorer{}
}

type scorer struct{}

type metricTargets struct {
	ivRankTarget float64
	ivRankScale  float64
	roiTarget    float64
	roiScale     float64
	mosTarget    float64
	mosScale     float64
}

var (
	ccTargets  = metricTargets{ivRankTarget: 50, ivRankScale: 15, roiTarget: 1.5, roiScale: 0.5}
	cspTargets = metricTargets{ivRankTarget: 55, ivRankScale: 15, roiTarget: 1.2, roiScale: 0.4, mosTarget: 7.5, mosScale: 3}
)

// Score blends the weighted sub-scores, applies the contextual multipliers
// and clamps the result to [0, 1]. The score is also written onto the pick.
func (s *scorer) Score(pick *entity.ScreenedPick) float64 {
	targets := ccTargets
	if pick.Strategy == entity.StrategyCashSecuredPut {
		targets = cspTargets
	}

	greeks := decodeGreeks(pick)

	score := 0.25 * normalizeMetric(pick.IVRank, targets.ivRankTarget, targets.ivRankScale)
	score += 0.30 * normalizeMetric(pick.ROI30D*100, targets.roiTarget, targets.roiScale)
	score += 0.10 * thetaSubScore(math.Abs(greeks["theta"]))
	score += 0.05 * gammaSubScore(math.Abs(greeks["gamma"]))
	score += 0.10 * vegaSubScore(math.Abs(greeks["vega"]), pick.IVRank)

	if pick.Strategy == entity.StrategyCoveredCall {
		score += 0.15 * (pick.TrendStrength + 1) / 2
		score += 0.05 * dividendSubScore(pick.DividendYield)
	} else {
		mos := 0.0
		if pick.MarginOfSafety != nil {
			mos = *pick.MarginOfSafety
		}
		score += 0.15 * normalizeMetric(mos*100, targets.mosTarget, targets.mosScale)
		score += 0.05 * pick.TrendStability
	}

	score *= s.multipliers(pick)
	score *= earningsMultiplier(pick.EarningsDaysUntil)

	score = clamp01(score)
	pick.Score = score
	return score
}

// RankPicks sorts each strategy group by score descending and assigns 1-based
// ranks in place.
func (s *scorer) RankPicks(picks []entity.ScreenedPick) {
	for _, strategy := range []entity.Strategy{entity.StrategyCoveredCall, entity.StrategyCashSecuredPut} {
		var idx []int
		for i := range picks {
			if picks[i].Strategy == strategy {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return picks[idx[a]].Score > picks[idx[b]].Score
		})
		for rank, i := range idx {
			picks[i].Rank = rank + 1
		}
	}
}

func (s *scorer) multipliers(pick *entity.ScreenedPick) float64 {
	m := 1.0

	if pick.Strategy == entity.StrategyCoveredCall && pick.Below200SMA {
		m *= common.Below200SMAPenalty
	}
	if pick.OpenInt > 2000 {
		m *= 1.05
	}
	if pick.SpreadPct > 0.07 {
		m *= 0.95
	}

	if pick.Strategy == entity.StrategyCoveredCall {
		if pick.TrendStability > 0.7 {
			m *= 1.03
		}
	} else {
		if pick.InUptrend {
			m *= 1.08
		}
		if pick.IVPercentile > 80 {
			m *= 1.03
		}
		if pick.MarginOfSafety != nil && *pick.MarginOfSafety < 0.05 {
			m *= 0.92
		}
		if pick.SupportLevel != nil && *pick.SupportLevel > 0 &&
			math.Abs(pick.Strike-*pick.SupportLevel)/(*pick.SupportLevel) <= 0.02 {
			m *= 1.04
		}
	}

	return m
}

// earningsMultiplier discounts premium capture risk ahead of a known earnings
// date. An unknown date counts as far away.
func earningsMultiplier(daysUntil *int) float64 {
	if daysUntil == nil || *daysUntil >= 30 || *daysUntil < 0 {
		return 1.00
	}
	switch {
	case *daysUntil < 7:
		return 0.50
	case *daysUntil < 14:
		return 0.70
	case *daysUntil < 21:
		return 0.85
	default:
		return 0.93
	}
}

// normalizeMetric maps a value to [0, 1] by z-scoring it against a target and
// scale, then compressing ±3 sigma onto the unit interval.
func normalizeMetric(value, target, scale float64) float64 {
	if scale == 0 {
		return 0.5
	}
	z := (value - target) / scale
	return clamp01((z + 3) / 6)
}

func thetaSubScore(theta float64) float64 {
	switch {
	case theta >= common.ThetaOptimalMin && theta <= common.ThetaOptimalMax:
		return 1.0
	case theta < common.ThetaOptimalMin:
		return theta / common.ThetaOptimalMin
	default:
		return math.Max(0.3, 1-(theta-common.ThetaOptimalMax)/common.ThetaOptimalMax)
	}
}

func gammaSubScore(gamma float64) float64 {
	switch {
	case gamma <= common.GammaLowThreshold:
		return 1.0
	case gamma <= common.GammaHighThreshold:
		return 0.7
	default:
		return 0.3
	}
}

// vegaSubScore rewards vega exposure aligned with the IV environment: large
// vega is good when IV is rich, small vega is good when IV is cheap.
func vegaSubScore(vega, ivRank float64) float64 {
	switch {
	case ivRank > 70 && vega > common.VegaHighThreshold:
		return 1.0
	case ivRank > 70 && vega > common.VegaLowThreshold:
		return 0.8
	case ivRank < 30 && vega < common.VegaLowThreshold:
		return 0.9
	default:
		return 0.6
	}
}

func dividendSubScore(yield *float64) float64 {
	if yield == nil || *yield <= 0 {
		return 0
	}
	return math.Min(*yield/0.05, 1)
}

func decodeGreeks(pick *entity.ScreenedPick) map[string]float64 {
	greeks := map[string]float64{}
	if len(pick.Greeks) > 0 {
		_ = json.Unmarshal(pick.Greeks, &greeks)
	}
	return greeks
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
