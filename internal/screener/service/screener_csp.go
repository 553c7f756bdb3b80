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

// CashSecuredPutScreener selects the best cash-secured put contract for one
// symbol. A symbol with no qualifying contract yields a nil pick and no error.
type CashSecuredPutScreener interface {
	Screen(ctx context.Context, snap *dto.SymbolSnapshot, feats *dto.TechnicalFeatures) (*entity.ScreenedPick, error)
}

// NewCashSecuredPutScreener creates a new cash-secured put screener.
func NewCashSecuredPutScreener(log *logger.Logger) CashSecuredPutScreener {
	return &cashSecuredPutScreener{logger: log}
}

type cashSecuredPutScreener struct {
	logger *logger.Logger
}

// Screen applies the cash-secured put filters and returns the contract with
// the best blended income/safety score, provided it clears the annual target.
// Puts are priced on capital at risk, so ROI uses the strike as denominator.
func (s *cashSecuredPutScreener) Screen(ctx context.Context, snap *dto.SymbolSnapshot, feats *dto.TechnicalFeatures) (*entity.ScreenedPick, error) {
	if feats.SpotPrice < common.MinPrice {
		return nil, nil
	}
	if feats.IVRank < common.CSPMinIVRank {
		s.logger.DebugContext(ctx, "Cash-secured put rejected on IV rank",
			logger.StringField("symbol", snap.Symbol), logger.Float64Field("iv_rank", feats.IVRank))
		return nil, nil
	}
	if feats.HV60 != nil && *feats.HV60 > common.MaxHV60 {
		return nil, nil
	}
	if utils.IsNearEarnings(snap.EarningsDate, common.EarningsExclusionDays, snap.Chain.AsOf) {
		s.logger.DebugContext(ctx, "Cash-secured put excluded on upcoming earnings",
			logger.StringField("symbol", snap.Symbol))
		return nil, nil
	}

	candidates := filterCandidates(snap.Chain.Puts(), snap.Chain.AsOf,
		deltaBand{min: common.CSPDeltaMin, max: common.CSPDeltaMax})
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *dto.OptionContract
	bestBlend := -1.0
	bestROI := 0.0
	for i := range candidates {
		c := &candidates[i]
		if c.Strike <= 0 {
			continue
		}
		dte := utils.CalculateDTE(c.Expiry, snap.Chain.AsOf)
		roi := annualize(c.Mid()/c.Strike, dte)
		mos := (feats.SpotPrice - c.Strike) / feats.SpotPrice
		blend := 0.7*(roi/0.30) + 0.3*(mos/0.15)
		if blend > bestBlend {
			best = c
			bestBlend = blend
			bestROI = roi
		}
	}
	if best == nil || bestROI < common.CSPAnnualizedTarget {
		return nil, nil
	}

	return s.buildPick(snap, feats, best), nil
}

func (s *cashSecuredPutScreener) buildPick(snap *dto.SymbolSnapshot, feats *dto.TechnicalFeatures, c *dto.OptionContract) *entity.ScreenedPick {
	dte := utils.CalculateDTE(c.Expiry, snap.Chain.AsOf)
	mid := c.Mid()
	roiPeriod := mid / c.Strike
	mos := (feats.SpotPrice - c.Strike) / feats.SpotPrice

	var notes []string
	if mos < 0.05 {
		notes = append(notes, fmt.Sprintf("thin margin of safety (%.1f%%)", mos*100))
	}
	if !feats.InUptrend {
		notes = append(notes, "not in uptrend")
	}

	greeks, _ := json.Marshal(map[string]float64{
		"delta": c.Delta, "gamma": c.Gamma, "theta": c.Theta, "vega": c.Vega,
	})

	return &entity.ScreenedPick{
		Symbol:   snap.Symbol,
		Strategy: entity.StrategyCashSecuredPut,
		Side:     string(dto.OptionSidePut),

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
		MarginOfSafety: &mos,
		SupportLevel:   feats.SupportLevel,
		DividendYield:  snap.DividendYield,

		EarningsDaysUntil: utils.DaysUntil(snap.EarningsDate, snap.Chain.AsOf),

		Greeks: datatypes.JSON(greeks),
		Notes:  pq.StringArray(notes),
	}
}
