package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"options-income-screener/internal/entity"
	"options-income-screener/internal/screener/config"
	"options-income-screener/internal/screener/dto"
	"options-income-screener/internal/screener/features"
	"options-income-screener/internal/screener/repository"
	"options-income-screener/pkg/common"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/retry"
	"options-income-screener/pkg/telegram"
	"options-income-screener/pkg/utils"

	"gorm.io/datatypes"
)

// PipelineService runs the full daily screening pipeline: sentiment batch,
// two-step filter, per-symbol screening and scoring, persistence, rationales
// and alerting. Collaborator failures are accumulated, never fatal to the run.
type PipelineService interface {
	Run(ctx context.Context, symbols []string) (*dto.PipelineResult, error)
}

// NewPipelineService creates a new screening pipeline service.
func NewPipelineService(
	cfg *config.Config,
	log *logger.Logger,
	marketData repository.MarketDataRepository,
	picksRepo repository.PicksRepository,
	runRepo repository.PipelineRunRepository,
	sentimentRepo repository.SentimentRepository,
	aiRepo repository.AIRepository,
	notifier telegram.Notifier,
	aggregator SentimentAggregator,
	filter SentimentFilter,
	ccScreener CoveredCallScreener,
	cspScreener CashSecuredPutScreener,
	scorer Scorer,
	monitoring MonitoringService,
) PipelineService {
	maxRetries := cfg.Screener.MaxRetries
	if maxRetries <= 0 {
		maxRetries = common.MaxRetries
	}
	retryDelay := cfg.Screener.RetryDelay
	if retryDelay == 0 {
		retryDelay = common.RetryDelay
	}
	return &pipelineService{
		cfg:           cfg,
		logger:        log,
		marketData:    marketData,
		picksRepo:     picksRepo,
		runRepo:       runRepo,
		sentimentRepo: sentimentRepo,
		aiRepo:        aiRepo,
		notifier:      notifier,
		aggregator:    aggregator,
		filter:        filter,
		ccScreener:    ccScreener,
		cspScreener:   cspScreener,
		scorer:        scorer,
		monitoring:    monitoring,
		retryPolicy:   retry.NewPolicy(maxRetries, retryDelay),
	}
}

type pipelineService struct {
	cfg           *config.Config
	logger        *logger.Logger
	marketData    repository.MarketDataRepository
	picksRepo     repository.PicksRepository
	runRepo       repository.PipelineRunRepository
	sentimentRepo repository.SentimentRepository
	aiRepo        repository.AIRepository
	notifier      telegram.Notifier
	aggregator    SentimentAggregator
	filter        SentimentFilter
	ccScreener    CoveredCallScreener
	cspScreener   CashSecuredPutScreener
	scorer        Scorer
	monitoring    MonitoringService
	retryPolicy   retry.Policy
}

// Run executes the pipeline for the given universe. The returned result is
// non-nil whenever the run row could be created.
func (s *pipelineService) Run(ctx context.Context, symbols []string) (*dto.PipelineResult, error) {
	runDate := utils.TodayMarket()
	startedAt := time.Now()

	run := &entity.PipelineRun{
		RunDate:   runDate,
		StartedAt: startedAt,
		Status:    entity.RunStatusRunning,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	result := &dto.PipelineResult{
		RunID:     run.ID,
		RunDate:   runDate,
		StartedAt: startedAt,
	}
	s.marketData.ResetAPICallCount()

	s.logger.InfoContext(ctx, "Pipeline run started",
		logger.Field("run_id", run.ID), logger.IntField("universe", len(symbols)))

	// re-running on the same date replaces that date's output
	if err := s.picksRepo.DeleteByDate(ctx, runDate); err != nil {
		s.recordError(result, "", "delete_picks", err)
	}
	if err := s.sentimentRepo.DeleteByDate(ctx, runDate); err != nil {
		s.recordError(result, "", "delete_sentiment", err)
	}

	survivors := s.sentimentStage(ctx, symbols, runDate, result)

	picks := s.screenStage(ctx, survivors, result)

	s.scorer.RankPicks(picks)
	for i := range picks {
		picks[i].AsOf = runDate
	}
	result.CCPicks, result.CSPPicks = countByStrategy(picks)

	if err := s.picksRepo.BatchUpsert(ctx, picks); err != nil {
		s.recordError(result, "", "persist_picks", err)
	} else if len(picks) > 0 {
		s.rationaleStage(ctx, runDate, result)
		s.alertStage(ctx, runDate, result)
	}

	s.finalize(ctx, run, result)
	s.monitoring.RecordCompletion(ctx, run)

	return result, nil
}

// sentimentStage runs the aggregator batch, persists the metrics and applies
// the two-step filter. On aggregator failure the whole universe passes through.
func (s *pipelineService) sentimentStage(ctx context.Context, symbols []string, runDate time.Time, result *dto.PipelineResult) []dto.SymbolSentiment {
	batch, err := s.aggregator.FetchBatch(ctx, symbols)
	if err != nil {
		s.recordError(result, "", "sentiment_batch", err)
		survivors := make([]dto.SymbolSentiment, 0, len(symbols))
		for _, symbol := range symbols {
			survivors = append(survivors, dto.SymbolSentiment{
				Symbol:      symbol,
				Signal:      dto.SignalNone,
				DataQuality: dto.DataQualityInsufficient,
			})
		}
		return survivors
	}

	metrics := make([]entity.SentimentMetric, 0, len(batch))
	for _, b := range batch {
		metrics = append(metrics, entity.SentimentMetric{
			Symbol:             b.Symbol,
			AsOf:               runDate,
			PutCallRatioVolume: b.PutCallRatioVolume,
			PutCallRatioOI:     b.PutCallRatioOI,
			CMF20:              b.CMF20,
			SentimentScore:     b.Score,
			SentimentRank:      b.Rank,
			SentimentExtreme:   b.Extreme,
			ContrarianSignal:   b.Signal,
			DataQuality:        b.DataQuality,
		})
	}
	if err := s.sentimentRepo.BatchUpsert(ctx, metrics); err != nil {
		s.recordError(result, "", "persist_sentiment", err)
	}

	filtered, stats := s.filter.Apply(ctx, batch)
	result.FilterStats = stats
	return filtered
}

// screenStage runs the per-symbol fetch/normalize/screen/score loop. The
// survivor's sentiment context is stamped onto every pick it produces.
func (s *pipelineService) screenStage(ctx context.Context, survivors []dto.SymbolSentiment, result *dto.PipelineResult) []entity.ScreenedPick {
	var picks []entity.ScreenedPick

	for _, sentiment := range survivors {
		symbol := sentiment.Symbol
		if ctx.Err() != nil {
			s.recordError(result, symbol, "canceled", ctx.Err())
			break
		}
		result.SymbolsAttempted++

		var symbolPicks []entity.ScreenedPick
		err := s.retryPolicy.Do(ctx, func() error {
			var serr error
			symbolPicks, serr = s.screenSymbol(ctx, symbol, &sentiment)
			return serr
		})
		if err != nil {
			result.SymbolsFailed++
			s.recordError(result, symbol, "screen", err)
			continue
		}

		result.SymbolsSucceeded++
		picks = append(picks, symbolPicks...)
	}

	return picks
}

func (s *pipelineService) screenSymbol(ctx context.Context, symbol string, sentiment *dto.SymbolSentiment) ([]entity.ScreenedPick, error) {
	series, err := s.marketData.GetPriceHistory(ctx, symbol, common.HistoricalDaysToFetch)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	if series == nil || len(series.Bars) < common.HistoricalBarsRequired {
		s.logger.DebugContext(ctx, "Insufficient price history, skipping symbol",
			logger.StringField("symbol", symbol))
		return nil, nil
	}

	chain, err := s.marketData.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("option chain: %w", err)
	}
	if chain == nil || len(chain.Contracts) == 0 {
		return nil, nil
	}
	if chain.SpotPrice == 0 {
		chain.SpotPrice = series.LastClose()
	}

	ivHistory, err := s.marketData.GetIVHistory(ctx, symbol, common.HistoricalDaysToFetch)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch IV history, rank defaults apply",
			logger.StringField("symbol", symbol), logger.ErrorField(err))
	}

	earnings, err := s.marketData.GetEarningsDate(ctx, symbol)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch earnings date",
			logger.StringField("symbol", symbol), logger.ErrorField(err))
	}

	dividend, err := s.marketData.GetDividendYield(ctx, symbol)
	if err != nil {
		s.logger.DebugContext(ctx, "Failed to fetch dividend yield",
			logger.StringField("symbol", symbol), logger.ErrorField(err))
	}

	snap := &dto.SymbolSnapshot{
		Symbol:        symbol,
		Prices:        *series,
		Chain:         *chain,
		IVHistory:     ivHistory,
		EarningsDate:  earnings,
		DividendYield: dividend,
	}
	feats := features.Compute(series, chain, ivHistory)

	var picks []entity.ScreenedPick
	if cc, err := s.ccScreener.Screen(ctx, snap, feats); err != nil {
		return nil, fmt.Errorf("covered call screen: %w", err)
	} else if cc != nil {
		s.scorer.Score(cc)
		picks = append(picks, *cc)
	}

	if csp, err := s.cspScreener.Screen(ctx, snap, feats); err != nil {
		return nil, fmt.Errorf("cash-secured put screen: %w", err)
	} else if csp != nil {
		s.scorer.Score(csp)
		picks = append(picks, *csp)
	}

	for i := range picks {
		picks[i].SentimentSignal = sentiment.Signal
		if sentiment.FilterReason != "" {
			picks[i].Notes = append(picks[i].Notes, "sentiment: "+sentiment.FilterReason)
		}
	}

	return picks, nil
}

// rationaleStage generates AI rationales for the top picks. Partial results
// are attached; failure only logs.
func (s *pipelineService) rationaleStage(ctx context.Context, runDate time.Time, result *dto.PipelineResult) {
	if !s.cfg.Screener.GenerateRationale || s.aiRepo == nil {
		return
	}

	top := s.topPicks(ctx, runDate, result)
	if len(top) == 0 {
		return
	}

	rationales, err := s.aiRepo.GenerateRationales(ctx, top)
	if err != nil {
		s.recordError(result, "", "rationales", err)
		return
	}
	for id, text := range rationales {
		if err := s.picksRepo.AttachRationale(ctx, id, text); err != nil {
			s.recordError(result, "", "attach_rationale", err)
		}
	}
}

// alertStage sends per-pick Telegram alerts for the top picks. Send failures
// only log; delivered alerts are marked on the pick.
func (s *pipelineService) alertStage(ctx context.Context, runDate time.Time, result *dto.PipelineResult) {
	if !s.cfg.Screener.SendTelegram || s.notifier == nil {
		return
	}

	for _, pick := range s.topPicks(ctx, runDate, result) {
		if err := s.notifier.SendMessage(telegram.FormatPickMessage(&pick)); err != nil {
			s.recordError(result, pick.Symbol, "telegram_alert", err)
			continue
		}
		if err := s.picksRepo.MarkAlertSent(ctx, pick.ID, time.Now()); err != nil {
			s.recordError(result, pick.Symbol, "mark_alert_sent", err)
		}
	}
}

func (s *pipelineService) topPicks(ctx context.Context, runDate time.Time, result *dto.PipelineResult) []entity.ScreenedPick {
	limit := s.cfg.Screener.TopPicksPerSide
	if limit <= 0 {
		limit = 3
	}

	var top []entity.ScreenedPick
	for _, strategy := range []entity.Strategy{entity.StrategyCoveredCall, entity.StrategyCashSecuredPut} {
		picks, err := s.picksRepo.TopByDate(ctx, runDate, strategy, limit)
		if err != nil {
			s.recordError(result, "", "top_picks", err)
			continue
		}
		top = append(top, picks...)
	}
	return top
}

func (s *pipelineService) finalize(ctx context.Context, run *entity.PipelineRun, result *dto.PipelineResult) {
	completedAt := time.Now()
	result.APICalls = int(s.marketData.APICallCount())

	run.CompletedAt = &completedAt
	run.SymbolsAttempted = result.SymbolsAttempted
	run.SymbolsSucceeded = result.SymbolsSucceeded
	run.SymbolsFailed = result.SymbolsFailed
	run.TotalPicks = result.CCPicks + result.CSPPicks
	run.CCPicks = result.CCPicks
	run.CSPPicks = result.CSPPicks
	run.APICalls = result.APICalls
	run.DurationSeconds = completedAt.Sub(result.StartedAt).Seconds()
	run.Status = classifyRun(result)

	if len(result.Errors) > 0 {
		run.ErrorMessage = result.Errors[0].Error
		if details, err := json.Marshal(result.Errors); err == nil {
			run.ErrorDetails = datatypes.JSON(details)
		}
	}

	if err := s.runRepo.Finalize(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "Failed to finalize pipeline run",
			logger.Field("run_id", run.ID), logger.ErrorField(err))
	}

	s.sendSummary(ctx, run, result)

	s.logger.InfoContext(ctx, "Pipeline run finished",
		logger.Field("run_id", run.ID),
		logger.StringField("status", string(run.Status)),
		logger.IntField("succeeded", run.SymbolsSucceeded),
		logger.IntField("failed", run.SymbolsFailed),
		logger.IntField("picks", run.TotalPicks),
		logger.Float64Field("duration_seconds", run.DurationSeconds),
	)
}

func (s *pipelineService) sendSummary(ctx context.Context, run *entity.PipelineRun, result *dto.PipelineResult) {
	if !s.cfg.Screener.SendTelegram || s.notifier == nil {
		return
	}
	picks, err := s.picksRepo.FindByDate(ctx, result.RunDate)
	if err != nil {
		s.recordError(result, "", "summary_picks", err)
		picks = nil
	}
	for _, msg := range telegram.FormatDailySummary(run, picks) {
		if err := s.notifier.SendMessage(msg); err != nil {
			s.logger.WarnContext(ctx, "Failed to send daily summary", logger.ErrorField(err))
			return
		}
	}
}

func (s *pipelineService) recordError(result *dto.PipelineResult, symbol, stage string, err error) {
	s.logger.Error("Pipeline stage error",
		logger.StringField("symbol", symbol),
		logger.StringField("stage", stage),
		logger.ErrorField(err))
	result.Errors = append(result.Errors, dto.SymbolError{
		Symbol: symbol,
		Stage:  stage,
		Error:  err.Error(),
	})
}

func classifyRun(result *dto.PipelineResult) entity.RunStatus {
	switch {
	case result.SymbolsAttempted > 0 && result.SymbolsSucceeded == 0:
		return entity.RunStatusFailed
	case result.SymbolsFailed == 0:
		return entity.RunStatusSuccess
	default:
		return entity.RunStatusPartial
	}
}

func countByStrategy(picks []entity.ScreenedPick) (cc, csp int) {
	for _, p := range picks {
		if p.Strategy == entity.StrategyCoveredCall {
			cc++
		} else {
			csp++
		}
	}
	return cc, csp
}
