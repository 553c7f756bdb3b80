package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/logger"
)

const (
	filterRankCutoff = 85
	filterDefaultCap = 20
	strictLongPC     = 1.5
	strictShortPC    = 0.7
	strictLongCMF    = 0.1
	strictShortCMF   = -0.1
	moderateLongPC   = 1.2
	moderateShortPC  = 0.9
	moderateLongCMF  = 0.05
	moderateShortCMF = -0.05
)

// SentimentFilter narrows a ranked sentiment batch to the symbols worth
// screening, in two steps: a wide interest gate, then a divergence
// confirmation. The survivor set is capped by priority ranking.
type SentimentFilter interface {
	Apply(ctx context.Context, batch []dto.SymbolSentiment) ([]dto.SymbolSentiment, dto.FilterStatistics)
}

// NewSentimentFilter creates a two-step sentiment filter with the given cap.
// A cap of zero falls back to the default of 20.
func NewSentimentFilter(cap int, log *logger.Logger) SentimentFilter {
	if cap <= 0 {
		cap = filterDefaultCap
	}
	return &sentimentFilter{cap: cap, logger: log}
}

type sentimentFilter struct {
	cap    int
	logger *logger.Logger
}

// Apply runs both filter steps and returns the survivors with statistics.
func (f *sentimentFilter) Apply(ctx context.Context, batch []dto.SymbolSentiment) ([]dto.SymbolSentiment, dto.FilterStatistics) {
	stats := dto.FilterStatistics{Input: len(batch)}

	var step1 []dto.SymbolSentiment
	for _, s := range batch {
		if s.DataQuality == dto.DataQualityInsufficient {
			continue
		}
		if passesStep1(&s) {
			step1 = append(step1, s)
		}
	}
	stats.PassedStep1 = len(step1)

	var step2 []dto.SymbolSentiment
	for _, s := range step1 {
		if reason, ok := passesStep2(&s); ok {
			s.FilterReason = reason
			step2 = append(step2, s)
		}
	}
	stats.PassedStep2 = len(step2)

	if len(step2) > f.cap {
		sort.SliceStable(step2, func(i, j int) bool {
			return priorityScore(&step2[i]) > priorityScore(&step2[j])
		})
		step2 = step2[:f.cap]
		stats.CapApplied = 1
	}
	stats.Output = len(step2)

	for _, s := range step2 {
		switch s.Signal {
		case dto.SignalContrarianLong:
			stats.ContrarianLong++
		case dto.SignalContrarianShort:
			stats.ContrarianShort++
		}
	}

	f.logger.InfoContext(ctx, "Sentiment filter applied",
		logger.IntField("input", stats.Input),
		logger.IntField("passed_step1", stats.PassedStep1),
		logger.IntField("passed_step2", stats.PassedStep2),
		logger.IntField("output", stats.Output),
	)

	return step2, stats
}

// passesStep1 is the wide interest gate: extreme rank, extreme classification,
// or an outright extreme put/call ratio.
func passesStep1(s *dto.SymbolSentiment) bool {
	if s.Rank >= filterRankCutoff || s.Rank <= 100-filterRankCutoff {
		return true
	}
	if s.Extreme != dto.ExtremeNeutral {
		return true
	}
	pc := effectivePutCallRatio(s)
	return pc != nil && (*pc >= strictLongPC || *pc <= strictShortPC)
}

// passesStep2 confirms a genuine sentiment/flow divergence, at either the
// strict or the moderate tier, and names the tier that matched.
func passesStep2(s *dto.SymbolSentiment) (string, bool) {
	pc := effectivePutCallRatio(s)
	if pc == nil || s.CMF20 == nil {
		return "", false
	}
	cmf := *s.CMF20
	switch {
	case *pc >= strictLongPC && cmf >= strictLongCMF:
		return fmt.Sprintf("strict long divergence (P/C %.2f, CMF %.2f)", *pc, cmf), true
	case *pc <= strictShortPC && cmf <= strictShortCMF:
		return fmt.Sprintf("strict short divergence (P/C %.2f, CMF %.2f)", *pc, cmf), true
	case *pc >= moderateLongPC && cmf >= moderateLongCMF:
		return fmt.Sprintf("moderate long divergence (P/C %.2f, CMF %.2f)", *pc, cmf), true
	case *pc <= moderateShortPC && cmf <= moderateShortCMF:
		return fmt.Sprintf("moderate short divergence (P/C %.2f, CMF %.2f)", *pc, cmf), true
	}
	return "", false
}

// priorityScore orders over-cap survivors: confirmed contrarians first, then
// score extremity, ratio overshoot, flow magnitude and data completeness.
func priorityScore(s *dto.SymbolSentiment) float64 {
	score := 0.0
	if s.Signal == dto.SignalContrarianLong || s.Signal == dto.SignalContrarianShort {
		score += 50
	}
	score += 30 * math.Abs(s.Score-0.5)
	if pc := effectivePutCallRatio(s); pc != nil {
		if *pc > strictLongPC {
			score += 10 * (*pc - strictLongPC)
		} else if *pc < strictShortPC {
			score += 10 * (strictShortPC - *pc)
		}
	}
	if s.CMF20 != nil {
		score += 10 * math.Abs(*s.CMF20)
	}
	if s.DataQuality == dto.DataQualityComplete {
		score += 5
	}
	return score
}
