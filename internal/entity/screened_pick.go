package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Strategy identifies the option-selling strategy a pick belongs to.
type Strategy string

const (
	StrategyCoveredCall    Strategy = "cc"
	StrategyCashSecuredPut Strategy = "csp"
)

// ScreenedPick is a persisted screening result for one symbol/strategy/contract.
// After persistence it is only updated to attach a rationale and the alert-sent marker.
type ScreenedPick struct {
	ID       int64     `json:"id"`
	AsOf     time.Time `json:"as_of" gorm:"type:date"`
	Symbol   string    `json:"symbol"`
	Strategy Strategy  `json:"strategy"`

	Side         string    `json:"side"`
	Strike       float64   `json:"strike"`
	Expiry       time.Time `json:"expiry" gorm:"type:date"`
	DTE          int       `json:"dte" gorm:"column:dte"`
	SpotPrice    float64   `json:"spot_price"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	Mid          float64   `json:"mid"`
	Premium      float64   `json:"premium"`
	Delta        float64   `json:"delta"`
	IV           float64   `json:"iv" gorm:"column:iv"`
	OpenInt      int64     `json:"open_interest"`
	Volume       int64     `json:"volume"`
	SpreadPct    float64   `json:"spread_pct"`
	ROIPeriod    float64   `json:"roi_period" gorm:"column:roi_period"`
	ROI30D       float64   `json:"roi_30d" gorm:"column:roi_30d"`
	ROIAnnual    float64   `json:"roi_annual" gorm:"column:roi_annual"`
	IVRank       float64   `json:"iv_rank" gorm:"column:iv_rank"`
	IVPercentile float64   `json:"iv_percentile" gorm:"column:iv_percentile"`

	HV20   *float64 `json:"hv_20" gorm:"column:hv_20"`
	HV60   *float64 `json:"hv_60" gorm:"column:hv_60"`
	SMA20  *float64 `json:"sma_20" gorm:"column:sma_20"`
	SMA50  *float64 `json:"sma_50" gorm:"column:sma_50"`
	SMA200 *float64 `json:"sma_200" gorm:"column:sma_200"`

	TrendStrength  float64  `json:"trend_strength"`
	TrendStability float64  `json:"trend_stability"`
	Below200SMA    bool     `json:"below_200sma" gorm:"column:below_200sma"`
	InUptrend      bool     `json:"in_uptrend"`
	MarginOfSafety *float64 `json:"margin_of_safety"`
	SupportLevel   *float64 `json:"support_level"`
	DividendYield  *float64 `json:"dividend_yield"`

	EarningsDaysUntil *int   `json:"earnings_days_until"`
	SentimentSignal   string `json:"sentiment_signal"`

	Greeks datatypes.JSON `json:"greeks" gorm:"type:jsonb"`
	Notes  pq.StringArray `json:"notes" gorm:"type:text[]"`

	Score float64 `json:"score"`
	Rank  int     `json:"rank"`

	Rationale   *string    `json:"rationale"`
	AlertSentAt *time.Time `json:"alert_sent_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at"`
}

func (ScreenedPick) TableName() string {
	return "screened_picks"
}
