package features

import (
	"math"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/utils"
)

const (
	atmDTETarget    = 30
	atmDTETolerance = 7
	atmStrikeBand   = 0.02
)

// ATMImpliedVolatility estimates the at-the-money IV from a chain snapshot:
// contracts expiring 30±7 days out with strikes within 2% of spot, averaged
// per side with volume plus open interest as weight, then the two sides
// averaged. Returns nil when no contract qualifies.
func ATMImpliedVolatility(chain *dto.OptionChain) *float64 {
	if chain == nil || chain.SpotPrice <= 0 {
		return nil
	}

	var callIV, putIV *float64
	for _, side := range []dto.OptionSide{dto.OptionSideCall, dto.OptionSidePut} {
		var weighted, weights float64
		for _, c := range chain.Contracts {
			if c.Side != side || c.IV <= 0 {
				continue
			}
			dte := utils.CalculateDTE(c.Expiry, chain.AsOf)
			if dte < atmDTETarget-atmDTETolerance || dte > atmDTETarget+atmDTETolerance {
				continue
			}
			if math.Abs(c.Strike-chain.SpotPrice)/chain.SpotPrice > atmStrikeBand {
				continue
			}
			w := float64(c.Volume + c.OpenInterest)
			if w <= 0 {
				w = 1
			}
			weighted += c.IV * w
			weights += w
		}
		if weights > 0 {
			v := weighted / weights
			if side == dto.OptionSideCall {
				callIV = &v
			} else {
				putIV = &v
			}
		}
	}

	switch {
	case callIV != nil && putIV != nil:
		v := (*callIV + *putIV) / 2
		return &v
	case callIV != nil:
		return callIV
	case putIV != nil:
		return putIV
	default:
		return nil
	}
}

// IVRank positions current IV within its historical min/max range on a 0-100
// scale. Defaults to 50 when history is too short or the range is flat.
func IVRank(current float64, history []float64) float64 {
	if current <= 0 || len(history) < 2 {
		return 50
	}
	lo, hi := history[0], history[0]
	for _, v := range history {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return 50
	}
	rank := (current - lo) / (hi - lo) * 100
	return clamp(rank, 0, 100)
}

// IVPercentile returns the share of historical IV readings strictly below the
// current one, on a 0-100 scale. Defaults to 50 when history is too short.
func IVPercentile(current float64, history []float64) float64 {
	if current <= 0 || len(history) < 2 {
		return 50
	}
	below := 0
	for _, v := range history {
		if v < current {
			below++
		}
	}
	return float64(below) / float64(len(history)) * 100
}
