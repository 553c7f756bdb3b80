package service

import (
	"context"
	"testing"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func divergent(symbol string, pc, cmf float64, rank int) dto.SymbolSentiment {
	s := dto.SymbolSentiment{
		Symbol:             symbol,
		PutCallRatioVolume: utils.ToPointer(pc),
		CMF20:              utils.ToPointer(cmf),
		Rank:               rank,
	}
	Classify(&s)
	s.Rank = rank
	return s
}

func TestSentimentFilterApply(t *testing.T) {
	ctx := context.Background()
	filter := NewSentimentFilter(0, testLogger(t))

	t.Run("strict divergence survives both steps", func(t *testing.T) {
		batch := []dto.SymbolSentiment{divergent("LONG", 2.0, 0.15, 90)}
		out, stats := filter.Apply(ctx, batch)

		require.Len(t, out, 1)
		assert.Equal(t, "LONG", out[0].Symbol)
		assert.Equal(t, "strict long divergence (P/C 2.00, CMF 0.15)", out[0].FilterReason)
		assert.Equal(t, 1, stats.PassedStep1)
		assert.Equal(t, 1, stats.PassedStep2)
		assert.Equal(t, 1, stats.ContrarianLong)
	})

	t.Run("moderate tier survives step two", func(t *testing.T) {
		batch := []dto.SymbolSentiment{divergent("MOD", 1.3, 0.06, 90)}
		out, _ := filter.Apply(ctx, batch)
		require.Len(t, out, 1)
		assert.Equal(t, "moderate long divergence (P/C 1.30, CMF 0.06)", out[0].FilterReason)
	})

	t.Run("short divergence names the short tier", func(t *testing.T) {
		batch := []dto.SymbolSentiment{divergent("SHORT", 0.5, -0.20, 95)}
		out, _ := filter.Apply(ctx, batch)
		require.Len(t, out, 1)
		assert.Equal(t, "strict short divergence (P/C 0.50, CMF -0.20)", out[0].FilterReason)
	})

	t.Run("interest without divergence is dropped in step two", func(t *testing.T) {
		// high rank but flow confirms the crowd instead of diverging
		batch := []dto.SymbolSentiment{divergent("CONF", 1.1, -0.2, 95)}
		out, stats := filter.Apply(ctx, batch)
		assert.Empty(t, out)
		assert.Equal(t, 1, stats.PassedStep1)
		assert.Equal(t, 0, stats.PassedStep2)
	})

	t.Run("mid-rank neutral symbol never enters", func(t *testing.T) {
		batch := []dto.SymbolSentiment{divergent("MID", 1.0, 0.0, 50)}
		out, stats := filter.Apply(ctx, batch)
		assert.Empty(t, out)
		assert.Equal(t, 0, stats.PassedStep1)
	})

	t.Run("insufficient quality is skipped", func(t *testing.T) {
		batch := []dto.SymbolSentiment{{
			Symbol: "BAD", Rank: 95, DataQuality: dto.DataQualityInsufficient,
		}}
		out, _ := filter.Apply(ctx, batch)
		assert.Empty(t, out)
	})
}

func TestSentimentFilterCap(t *testing.T) {
	ctx := context.Background()
	filter := NewSentimentFilter(2, testLogger(t))

	batch := []dto.SymbolSentiment{
		divergent("WEAK", 1.25, 0.06, 90),
		divergent("STRONG", 2.5, 0.30, 95),
		divergent("MEDIUM", 1.8, 0.15, 92),
	}
	out, stats := filter.Apply(ctx, batch)

	require.Len(t, out, 2)
	assert.Equal(t, 1, stats.CapApplied)
	// confirmed contrarians with the larger overshoot rank first
	assert.Equal(t, "STRONG", out[0].Symbol)
	assert.Equal(t, "MEDIUM", out[1].Symbol)
}
