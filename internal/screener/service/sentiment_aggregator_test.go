package service

import (
	"testing"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestPutCallSubScore(t *testing.T) {
	cases := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"heavy puts at threshold", 1.5, 1.0},
		{"extreme puts decay", 2.0, 0.5},
		{"extreme puts floor", 3.0, 0.0},
		{"heavy calls at threshold", 0.7, 1.0},
		{"neutral ratio", 1.0, 0.5},
		{"mildly bearish", 1.2, 0.375},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, PutCallSubScore(tc.ratio), 1e-9)
		})
	}
}

func TestCMFSubScore(t *testing.T) {
	assert.InDelta(t, 0.5, CMFSubScore(0), 1e-9)
	assert.InDelta(t, 0.4, CMFSubScore(0.2), 1e-9)
	assert.InDelta(t, 0.6, CMFSubScore(-0.2), 1e-9)
}

func TestClassify(t *testing.T) {
	t.Run("heavy put buying with accumulation is contrarian long", func(t *testing.T) {
		s := &dto.SymbolSentiment{
			Symbol:             "XYZ",
			PutCallRatioVolume: utils.ToPointer(2.0),
			CMF20:              utils.ToPointer(0.15),
		}
		Classify(s)

		assert.Equal(t, dto.SignalContrarianLong, s.Signal)
		assert.Equal(t, dto.DataQualityComplete, s.DataQuality)
		// subscores: put/call 0.5, cmf 0.425
		assert.InDelta(t, 0.4625, s.Score, 1e-9)
	})

	t.Run("heavy call buying with distribution is contrarian short", func(t *testing.T) {
		s := &dto.SymbolSentiment{
			Symbol:             "XYZ",
			PutCallRatioVolume: utils.ToPointer(0.5),
			CMF20:              utils.ToPointer(-0.2),
		}
		Classify(s)
		assert.Equal(t, dto.SignalContrarianShort, s.Signal)
	})

	t.Run("missing inputs default to neutral midpoint", func(t *testing.T) {
		s := &dto.SymbolSentiment{Symbol: "XYZ"}
		Classify(s)
		assert.Equal(t, 0.5, s.Score)
		assert.Equal(t, dto.ExtremeNeutral, s.Extreme)
		assert.Equal(t, dto.SignalNone, s.Signal)
		assert.Equal(t, dto.DataQualityInsufficient, s.DataQuality)
	})

	t.Run("one input is partial quality", func(t *testing.T) {
		s := &dto.SymbolSentiment{Symbol: "XYZ", CMF20: utils.ToPointer(-0.9)}
		Classify(s)
		assert.Equal(t, dto.DataQualityPartial, s.DataQuality)
		assert.Equal(t, dto.ExtremeBearish, s.Extreme)
	})

	t.Run("oi ratio used when volume ratio missing", func(t *testing.T) {
		s := &dto.SymbolSentiment{
			Symbol:         "XYZ",
			PutCallRatioOI: utils.ToPointer(2.0),
			CMF20:          utils.ToPointer(0.15),
		}
		Classify(s)
		assert.Equal(t, dto.SignalContrarianLong, s.Signal)
	})
}

func TestRankBatch(t *testing.T) {
	t.Run("ranks are percent-below within the quality set", func(t *testing.T) {
		batch := []dto.SymbolSentiment{
			{Symbol: "A", Score: 0.2, DataQuality: dto.DataQualityComplete},
			{Symbol: "B", Score: 0.5, DataQuality: dto.DataQualityComplete},
			{Symbol: "C", Score: 0.8, DataQuality: dto.DataQualityComplete},
			{Symbol: "D", Score: 0.9, DataQuality: dto.DataQualityComplete},
		}
		RankBatch(batch)

		assert.Equal(t, 0, batch[0].Rank)
		assert.Equal(t, 25, batch[1].Rank)
		assert.Equal(t, 50, batch[2].Rank)
		assert.Equal(t, 75, batch[3].Rank)
	})

	t.Run("insufficient quality is pinned at 50 and excluded", func(t *testing.T) {
		batch := []dto.SymbolSentiment{
			{Symbol: "A", Score: 0.1, DataQuality: dto.DataQualityComplete},
			{Symbol: "B", Score: 0.99, DataQuality: dto.DataQualityInsufficient},
			{Symbol: "C", Score: 0.9, DataQuality: dto.DataQualityComplete},
		}
		RankBatch(batch)

		assert.Equal(t, 50, batch[1].Rank)
		assert.Equal(t, 0, batch[0].Rank)
		assert.Equal(t, 50, batch[2].Rank)
	})

	t.Run("ranks stay within bounds", func(t *testing.T) {
		batch := []dto.SymbolSentiment{
			{Symbol: "A", Score: 0.5, DataQuality: dto.DataQualityComplete},
		}
		RankBatch(batch)
		assert.GreaterOrEqual(t, batch[0].Rank, 0)
		assert.Less(t, batch[0].Rank, 100)
	})
}

func TestPutCallRatios(t *testing.T) {
	chain := &dto.OptionChain{
		Contracts: []dto.OptionContract{
			{Side: dto.OptionSideCall, Volume: 100, OpenInterest: 1000},
			{Side: dto.OptionSidePut, Volume: 200, OpenInterest: 500},
		},
	}
	vol, oi := PutCallRatios(chain)
	assert.InDelta(t, 2.0, *vol, 1e-9)
	assert.InDelta(t, 0.5, *oi, 1e-9)

	t.Run("zero activity yields nil", func(t *testing.T) {
		vol, oi := PutCallRatios(&dto.OptionChain{
			Contracts: []dto.OptionContract{{Side: dto.OptionSideCall, Volume: 100}},
		})
		assert.Nil(t, vol)
		assert.Nil(t, oi)
	})
}
