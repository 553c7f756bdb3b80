package service

import (
	"math"
	"time"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/common"
	"options-income-screener/pkg/utils"
)

// deltaBand is the absolute delta window a strategy accepts.
type deltaBand struct {
	min float64
	max float64
}

// filterCandidates applies the shared liquidity and selection-band filters to
// one side of a chain: DTE window, delta band, open interest, volume and
// relative spread.
func filterCandidates(contracts []dto.OptionContract, asOf time.Time, band deltaBand) []dto.OptionContract {
	var out []dto.OptionContract
	for _, c := range contracts {
		dte := utils.CalculateDTE(c.Expiry, asOf)
		if dte < common.DTEMin || dte > common.DTEMax {
			continue
		}
		absDelta := math.Abs(c.Delta)
		if absDelta < band.min || absDelta > band.max {
			continue
		}
		if c.OpenInterest < common.MinOptionOI || c.Volume < common.MinOptionVolume {
			continue
		}
		if c.SpreadPct() > common.MaxSpreadPct {
			continue
		}
		if c.Mid() <= 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// annualize converts a period return over dte days to an annual rate.
func annualize(periodROI float64, dte int) float64 {
	if dte <= 0 {
		return 0
	}
	return periodROI * 365 / float64(dte)
}

// thirtyDay converts a period return over dte days to a 30-day rate.
func thirtyDay(periodROI float64, dte int) float64 {
	if dte <= 0 {
		return 0
	}
	return periodROI * 30 / float64(dte)
}
