package service

import (
	"context"
	"encoding/json"
	"fmt"

	"options-income-screener/internal/entity"
	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/common"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/utils"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// CoveredCallScreener selects the best covered call contract for one symbol.
// A symbol with no qualifying contract yields a nil pick and no error.
type CoveredCallScreener interface {
	Screen(ctx context.Context, snap *dto.SymbolSnapshot, feats *dto.TechnicalFeatures) (*entity.ScreenedPick, error)
}

// NewCoveredCallScreener creates a new covered call screener.
func NewCoveredCallScreener(log *logger.Logger) CoveredCallScreener {
	return &coveredCallScreener{logger: log}
}

type coveredCallScreener struct {
	logger *logger.Logger
}

// Screen applies the covered call filters and returns the contract with the
// highest annualized ROI, provided it clears the annual income target.
func (s *coveredCallScreener) Screen(ctx context.Context, snap *dto.SymbolSnapshot, feats *dto.TechnicalFeatures) (*entity.ScreenedPick, error) {
	if feats.SpotPrice < common.MinPrice {
		return nil, nil
	}
	if feats.IVRank < common.CCMinIVRank {
		s.logger.DebugContext(ctx, "Covered call rejected on IV rank",
			logger.StringField("symbol", snap.Symbol), logger.Float64Field("iv_rank", feats.IVRank))
		return nil, nil
	}
	if feats.HV60 != nil && *feats.HV60 > common.MaxHV60 {
		return nil, nil
	}

	candidates := filterCandidates(snap.Chain.Calls(), snap.Chain.AsOf,
		deltaBand{min: common.CCDeltaMin, max: common.CCDeltaMax})
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *dto.OptionContract
	bestROI := 0.0
	for i := range candidates {
		c := &candidates[i]
		dte := utils.CalculateDTE(c.Expiry, snap.Chain.AsOf)
		roi := annualize(c.Mid()/feats.SpotPrice, dte)
		if roi > bestROI {
			best = c
			bestROI = roi
		}
	}
	if best == nil || bestROI < common.CCAnnualizedTarget {
		return nil, nil
	}

	return s.buildPick(snap, feats, best), nil
}

func (s *coveredCallScreener) buildPick(snap *dto.SymbolSnapshot, feats *dto.TechnicalFeatures, c *dto.OptionContract) *entity.ScreenedPick {
	dte := utils.CalculateDTE(c.Expiry, snap.Chain.AsOf)
	mid := c.Mid()
	roiPeriod := mid / feats.SpotPrice

	var notes []string
	if feats.Below200SMA {
		notes = append(notes, "price below 200SMA")
	}
	if feats.TrendStrength < -0.3 {
		notes = append(notes, fmt.Sprintf("weak trend (%.2f)", feats.TrendStrength))
	}
	if utils.IsNearEarnings(snap.EarningsDate, common.EarningsExclusionDays, snap.Chain.AsOf) {
		notes = append(notes, "earnings inside exclusion window")
	}

	greeks, _ := json.Marshal(map[string]float64{
		"delta": c.Delta, "gamma": c.Gamma, "theta": c.Theta, "vega": c.Vega,
	})

	return &entity.ScreenedPick{
		Symbol:   snap.Symbol,
		Strategy: entity.StrategyCoveredCall,
		Side:     string(dto.OptionSideCall),

		Strike:       c.Strike,
		Expiry:       c.Expiry,
		DTE:          dte,
		SpotPrice:    feats.SpotPrice,
		Bid:          c.Bid,
		Ask:          c.Ask,
		Mid:          mid,
		Premium:      mid * 100,
		Delta:        c.Delta,
		IV:           c.IV,
		OpenInt:      c.OpenInterest,
		Volume:       c.Volume,
		SpreadPct:    c.SpreadPct(),
		ROIPeriod:    roiPeriod,
		ROI30D:       thirtyDay(roiPeriod, dte),
		ROIAnnual:    annualize(roiPeriod, dte),
		IVRank:       feats.IVRank,
		IVPercentile: feats.IVPercentile,

		HV20:   feats.HV20,
		HV60:   feats.HV60,
		SMA20:  feats.SMA20,
		SMA50:  feats.SMA50,
		SMA200: feats.SMA200,

		TrendStrength:  feats.TrendStrength,
		TrendStability: feats.TrendStability,
		Below200SMA:    feats.Below200SMA,
		InUptrend:      feats.InUptrend,
		SupportLevel:   feats.SupportLevel,
		DividendYield:  snap.DividendYield,

		EarningsDaysUntil: utils.DaysUntil(snap.EarningsDate, snap.Chain.AsOf),

		Greeks: datatypes.JSON(greeks),
		Notes:  pq.StringArray(notes),
	}
}
