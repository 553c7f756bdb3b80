package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"options-income-screener/internal/entity"
	"options-income-screener/internal/screener/config"
	"options-income-screener/internal/screener/dto"
	"options-income-screener/internal/screener/repository"
	"options-income-screener/pkg/common"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/redis"
	"options-income-screener/pkg/telegram"
)

const (
	defaultConsecutiveFailureThreshold = 3
	defaultSymbolFailureRateThreshold  = 0.5
	defaultSlowRunThreshold            = 300 * time.Second
	defaultDeadMansSwitchWindow        = 26 * time.Hour
)

// MonitoringService watches pipeline health: post-run checks, the independent
// dead-man's switch and the composite health score.
type MonitoringService interface {
	RecordCompletion(ctx context.Context, run *entity.PipelineRun)
	CheckDeadMansSwitch(ctx context.Context) error
	GetHealthStatus(ctx context.Context) (*dto.HealthStatus, error)
}

// NewMonitoringService creates a new monitoring service.
func NewMonitoringService(
	cfg *config.Config,
	log *logger.Logger,
	runRepo repository.PipelineRunRepository,
	alertRepo repository.MonitoringAlertRepository,
	redisClient *redis.Client,
	notifier telegram.Notifier,
) MonitoringService {
	m := cfg.Monitoring
	if m.ConsecutiveFailureThreshold <= 0 {
		m.ConsecutiveFailureThreshold = defaultConsecutiveFailureThreshold
	}
	if m.SymbolFailureRateThreshold <= 0 {
		m.SymbolFailureRateThreshold = defaultSymbolFailureRateThreshold
	}
	if m.SlowRunThreshold == 0 {
		m.SlowRunThreshold = defaultSlowRunThreshold
	}
	if m.DeadMansSwitchWindow == 0 {
		m.DeadMansSwitchWindow = defaultDeadMansSwitchWindow
	}
	return &monitoringService{
		cfg:       m,
		logger:    log,
		runRepo:   runRepo,
		alertRepo: alertRepo,
		redis:     redisClient,
		notifier:  notifier,
	}
}

type monitoringService struct {
	cfg       config.Monitoring
	logger    *logger.Logger
	runRepo   repository.PipelineRunRepository
	alertRepo repository.MonitoringAlertRepository
	redis     *redis.Client
	notifier  telegram.Notifier
}

// RecordCompletion evaluates a just-finished run against the alert rules.
// Each rule that trips raises one alert; evaluation errors only log.
func (s *monitoringService) RecordCompletion(ctx context.Context, run *entity.PipelineRun) {
	if run.Status == entity.RunStatusFailed {
		count, err := s.runRepo.CountConsecutiveFailures(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to count consecutive failures", logger.ErrorField(err))
		} else if count >= s.cfg.ConsecutiveFailureThreshold {
			s.raiseAlert(ctx, entity.AlertTypeConsecutiveFailures, entity.AlertSeverityCritical,
				fmt.Sprintf("Pipeline has failed %d times in a row", count),
				map[string]interface{}{"consecutive_failures": count, "run_id": run.ID})
		}
	}

	if run.SymbolsAttempted > 0 {
		failureRate := float64(run.SymbolsFailed) / float64(run.SymbolsAttempted)
		if failureRate > s.cfg.SymbolFailureRateThreshold {
			s.raiseAlert(ctx, entity.AlertTypeHighFailureRate, entity.AlertSeverityWarning,
				fmt.Sprintf("%.0f%% of symbols failed in run %d", failureRate*100, run.ID),
				map[string]interface{}{"failure_rate": failureRate, "run_id": run.ID})
		}
	}

	if run.DurationSeconds > s.cfg.SlowRunThreshold.Seconds() {
		s.raiseAlert(ctx, entity.AlertTypeSlowPerformance, entity.AlertSeverityInfo,
			fmt.Sprintf("Run %d took %.0fs", run.ID, run.DurationSeconds),
			map[string]interface{}{"duration_seconds": run.DurationSeconds, "run_id": run.ID})
	}
}

// CheckDeadMansSwitch raises one critical alert when no run has started
// within the configured window, or no run exists at all. A Redis key
// suppresses duplicate alerts inside the suppression window.
func (s *monitoringService) CheckDeadMansSwitch(ctx context.Context) error {
	latest, err := s.runRepo.FindLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to load latest run: %w", err)
	}

	breach := latest == nil || time.Since(latest.StartedAt) > s.cfg.DeadMansSwitchWindow
	if !breach {
		return nil
	}

	if s.isSuppressed(ctx, entity.AlertTypeDeadMansSwitch) {
		return nil
	}

	message := "No pipeline run has ever been recorded"
	details := map[string]interface{}{"window_hours": s.cfg.DeadMansSwitchWindow.Hours()}
	if latest != nil {
		message = fmt.Sprintf("No pipeline run since %s", latest.StartedAt.Format("2006-01-02 15:04:05"))
		details["last_run_at"] = latest.StartedAt
	}

	s.raiseAlert(ctx, entity.AlertTypeDeadMansSwitch, entity.AlertSeverityCritical, message, details)
	return nil
}

// GetHealthStatus computes the composite health score from recent run history
// and alert volume.
func (s *monitoringService) GetHealthStatus(ctx context.Context) (*dto.HealthStatus, error) {
	status := &dto.HealthStatus{Score: 100, CheckedAt: time.Now()}

	latest, err := s.runRepo.FindLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	if latest == nil || time.Since(latest.StartedAt) > s.cfg.DeadMansSwitchWindow {
		status.Score -= 50
		status.Deductions = append(status.Deductions, "no run inside the expected window")
	}
	if latest != nil {
		status.LastRunAt = &latest.StartedAt
		status.LastStatus = string(latest.Status)
		if latest.Status == entity.RunStatusFailed {
			status.Score -= 30
			status.Deductions = append(status.Deductions, "last run failed")
		}
		if latest.SymbolsAttempted > 0 &&
			float64(latest.SymbolsSucceeded)/float64(latest.SymbolsAttempted) < 0.5 {
			status.Score -= 20
			status.Deductions = append(status.Deductions, "last run symbol success below 50%")
		}
	}

	weekly, err := s.runRepo.GetWeeklyStats(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load weekly stats", logger.ErrorField(err))
	} else if weekly.SuccessRate() < 0.8 {
		status.Score -= 15
		status.Deductions = append(status.Deductions, "weekly run success below 80%")
	}

	alerts, err := s.alertRepo.CountRecent(ctx,
		[]entity.AlertSeverity{entity.AlertSeverityWarning, entity.AlertSeverityCritical}, 24*time.Hour)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to count recent alerts", logger.ErrorField(err))
	} else {
		status.AlertCount = alerts
		if alerts > 5 {
			status.Score -= 10
			status.Deductions = append(status.Deductions, "more than 5 alerts in 24h")
		}
	}

	if status.Score < 0 {
		status.Score = 0
	}
	switch {
	case status.Score >= 80:
		status.Status = "healthy"
	case status.Score >= 50:
		status.Status = "degraded"
	default:
		status.Status = "critical"
	}
	return status, nil
}

func (s *monitoringService) raiseAlert(ctx context.Context, alertType string, severity entity.AlertSeverity, message string, details map[string]interface{}) {
	alert := &entity.MonitoringAlert{
		AlertType: alertType,
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if payload, err := json.Marshal(details); err == nil {
		alert.Details = payload
	}

	alert.SentVia = "none"
	if s.notifier != nil {
		if err := s.notifier.SendMessage(telegram.FormatMonitoringAlert(alert)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to deliver monitoring alert",
				logger.StringField("alert_type", alertType), logger.ErrorField(err))
			alert.SentVia = "failed"
		} else {
			alert.SentVia = "telegram"
		}
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist monitoring alert",
			logger.StringField("alert_type", alertType), logger.ErrorField(err))
	}

	s.markSuppressed(ctx, alertType)
}

func (s *monitoringService) isSuppressed(ctx context.Context, alertType string) bool {
	if s.redis == nil {
		return false
	}
	key := fmt.Sprintf(common.RedisKeyAlertSent, alertType)
	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

func (s *monitoringService) markSuppressed(ctx context.Context, alertType string) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(common.RedisKeyAlertSent, alertType)
	if err := s.redis.Set(ctx, key, time.Now().Format(time.RFC3339), common.AlertSuppressionWindow).Err(); err != nil {
		s.logger.DebugContext(ctx, "Failed to set alert suppression key", logger.ErrorField(err))
	}
}
