package service

import (
	"context"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/internal/screener/features"
	"options-income-screener/internal/screener/repository"
	"options-income-screener/pkg/common"
	"options-income-screener/pkg/logger"
)

// SentimentAggregator builds the per-symbol sentiment picture for a batch of
// symbols. Ranks are only meaningful after the whole batch has been processed.
type SentimentAggregator interface {
	FetchBatch(ctx context.Context, symbols []string) ([]dto.SymbolSentiment, error)
}

// NewSentimentAggregator creates a new sentiment aggregator.
func NewSentimentAggregator(marketData repository.MarketDataRepository, log *logger.Logger) SentimentAggregator {
	return &sentimentAggregator{
		marketData: marketData,
		logger:     log,
	}
}

type sentimentAggregator struct {
	marketData repository.MarketDataRepository
	logger     *logger.Logger
}

// FetchBatch computes sentiment for every symbol, then ranks the batch.
// A symbol whose data cannot be fetched yields an insufficient-quality
// placeholder; the batch never aborts on one symbol.
func (s *sentimentAggregator) FetchBatch(ctx context.Context, symbols []string) ([]dto.SymbolSentiment, error) {
	batch := make([]dto.SymbolSentiment, 0, len(symbols))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sentiment, err := s.fetchOne(ctx, symbol)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to fetch sentiment data, recording placeholder",
				logger.StringField("symbol", symbol), logger.ErrorField(err))
			sentiment = &dto.SymbolSentiment{
				Symbol:      symbol,
				Score:       0.5,
				Extreme:     dto.ExtremeNeutral,
				Signal:      dto.SignalNone,
				DataQuality: dto.DataQualityInsufficient,
			}
		}
		batch = append(batch, *sentiment)
	}

	RankBatch(batch)
	return batch, nil
}

func (s *sentimentAggregator) fetchOne(ctx context.Context, symbol string) (*dto.SymbolSentiment, error) {
	sentiment := &dto.SymbolSentiment{Symbol: symbol}

	chain, err := s.marketData.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if chain != nil {
		sentiment.PutCallRatioVolume, sentiment.PutCallRatioOI = PutCallRatios(chain)
	}

	series, err := s.marketData.GetPriceHistory(ctx, symbol, common.HistoricalDaysToFetch)
	if err != nil {
		return nil, err
	}
	if series != nil {
		sentiment.CMF20 = features.CMF(series.Bars, 20)
	}

	Classify(sentiment)
	return sentiment, nil
}

// PutCallRatios derives the volume and open-interest put/call ratios from a
// chain snapshot. A side with zero activity yields a nil ratio.
func PutCallRatios(chain *dto.OptionChain) (volume *float64, oi *float64) {
	var callVol, putVol, callOI, putOI int64
	for _, c := range chain.Contracts {
		if c.Side == dto.OptionSideCall {
			callVol += c.Volume
			callOI += c.OpenInterest
		} else {
			putVol += c.Volume
			putOI += c.OpenInterest
		}
	}
	if callVol > 0 && putVol > 0 {
		v := float64(putVol) / float64(callVol)
		volume = &v
	}
	if callOI > 0 && putOI > 0 {
		v := float64(putOI) / float64(callOI)
		oi = &v
	}
	return volume, oi
}

// PutCallSubScore maps a put/call ratio to a crowd-fear reading in [0, 1].
// Heavy put activity scores high, heavy call activity scores low.
func PutCallSubScore(ratio float64) float64 {
	switch {
	case ratio >= 1.5:
		score := 1 - (ratio - 1.5)
		if score < 0 {
			return 0
		}
		return score
	case ratio <= 0.7:
		score := 0.7 / ratio
		if score > 1 {
			return 1
		}
		return score
	default:
		return 0.5 + (1.0-ratio)/1.6
	}
}

// CMFSubScore maps Chaikin Money Flow to the same fear scale: distribution
// (negative CMF) scores high, accumulation scores low.
func CMFSubScore(cmf float64) float64 {
	return 0.5 - 0.5*cmf
}

// Classify fills score, extreme, contrarian signal and data quality from the
// raw sentiment inputs.
func Classify(s *dto.SymbolSentiment) {
	pc := effectivePutCallRatio(s)

	var score, weight float64
	if pc != nil {
		score += 0.5 * PutCallSubScore(*pc)
		weight += 0.5
	}
	if s.CMF20 != nil {
		score += 0.5 * CMFSubScore(*s.CMF20)
		weight += 0.5
	}

	if weight == 0 {
		s.Score = 0.5
	} else {
		s.Score = score / weight
	}

	switch {
	case s.Score >= 0.7:
		s.Extreme = dto.ExtremeBearish
	case s.Score <= 0.3:
		s.Extreme = dto.ExtremeBullish
	default:
		s.Extreme = dto.ExtremeNeutral
	}

	s.Signal = dto.SignalNone
	if pc != nil && s.CMF20 != nil {
		switch {
		case *pc > 1.5 && *s.CMF20 > 0.1:
			s.Signal = dto.SignalContrarianLong
		case *pc < 0.7 && *s.CMF20 < -0.1:
			s.Signal = dto.SignalContrarianShort
		}
	}

	switch {
	case pc != nil && s.CMF20 != nil:
		s.DataQuality = dto.DataQualityComplete
	case pc != nil || s.CMF20 != nil:
		s.DataQuality = dto.DataQualityPartial
	default:
		s.DataQuality = dto.DataQualityInsufficient
	}
}

// RankBatch assigns each symbol the percentage of ranked peers scoring below
// it. Insufficient-quality symbols are excluded from ranking and pinned at 50.
func RankBatch(batch []dto.SymbolSentiment) {
	var ranked []int
	for i := range batch {
		if batch[i].DataQuality != dto.DataQualityInsufficient {
			ranked = append(ranked, i)
		}
	}

	for i := range batch {
		if batch[i].DataQuality == dto.DataQualityInsufficient {
			batch[i].Rank = 50
			continue
		}
		below := 0
		for _, j := range ranked {
			if batch[j].Score < batch[i].Score {
				below++
			}
		}
		batch[i].Rank = int(100 * float64(below) / float64(len(ranked)))
	}
}

func effectivePutCallRatio(s *dto.SymbolSentiment) *float64 {
	if s.PutCallRatioVolume != nil {
		return s.PutCallRatioVolume
	}
	return s.PutCallRatioOI
}
