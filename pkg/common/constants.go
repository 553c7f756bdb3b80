package common

import "time"

// Price and liquidity filters.
const (
	MinPrice        = 10.0
	MinOptionOI     = 500
	MinOptionVolume = 50
	MaxSpreadPct    = 0.10
)

// Contract selection bands.
const (
	CCDeltaMin  = 0.25
	CCDeltaMax  = 0.35
	CSPDeltaMin = 0.25
	CSPDeltaMax = 0.30
	DTEMin      = 30
	DTEMax      = 45
)

// Greeks thresholds for scoring.
const (
	ThetaOptimalMin    = 0.05
	ThetaOptimalMax    = 0.15
	GammaLowThreshold  = 0.001
	GammaHighThreshold = 0.003
	VegaHighThreshold  = 0.20
	VegaLowThreshold   = 0.08
)

// Volatility environment filters.
const (
	CCMinIVRank  = 40.0
	CSPMinIVRank = 50.0
	MaxHV60      = 0.50
)

// Earnings exclusion window for cash-secured puts.
const EarningsExclusionDays = 10

// Annualized ROI targets per strategy.
const (
	CCAnnualizedTarget  = 0.15
	CSPAnnualizedTarget = 0.12
)

// Score adjustments.
const Below200SMAPenalty = 0.85

// Historical data requirements.
const (
	HistoricalBarsRequired = 200
	HistoricalDaysToFetch  = 300
	TradingDaysPerYear     = 252
)

// Retry policy defaults for external calls.
const (
	MaxRetries = 3
	RetryDelay = 1 * time.Second
)

// Redis keys shared between the pipeline and monitoring.
const (
	RedisKeyLastSpotPrice  = "screener:last_price:%s"
	RedisKeyAlertSent      = "screener:monitoring_alert:%s"
	AlertSuppressionWindow = 6 * time.Hour
)
