package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AlertSeverity grades monitoring alerts.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Monitoring alert types raised by the monitoring service.
const (
	AlertTypeConsecutiveFailures = "consecutive_failures"
	AlertTypeHighFailureRate     = "high_failure_rate"
	AlertTypeSlowPerformance     = "slow_performance"
	AlertTypeDeadMansSwitch      = "dead_mans_switch"
)

// MonitoringAlert is a write-once audit record of a raised alert.
type MonitoringAlert struct {
	ID        int64          `json:"id"`
	AlertType string         `json:"alert_type"`
	Severity  AlertSeverity  `json:"severity"`
	Message   string         `json:"message"`
	Details   datatypes.JSON `json:"details" gorm:"type:jsonb"`
	SentVia   string         `json:"sent_via"`
	CreatedAt time.Time      `json:"created_at"`
}

func (MonitoringAlert) TableName() string {
	return "monitoring_alerts"
}
