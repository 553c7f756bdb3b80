package entity

import (
	"time"
)

// SentimentMetric is the persisted per-symbol sentiment snapshot for one as-of date.
// The rank field is only meaningful once the whole universe batch has been ranked.
type SentimentMetric struct {
	ID     int64     `json:"id"`
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of" gorm:"type:date"`

	PutCallRatioVolume *float64 `json:"put_call_ratio_volume"`
	PutCallRatioOI     *float64 `json:"put_call_ratio_oi"`
	CMF20              *float64 `json:"cmf_20" gorm:"column:cmf_20"`

	SentimentScore   float64 `json:"sentiment_score"`
	SentimentRank    int     `json:"sentiment_rank"`
	SentimentExtreme string  `json:"sentiment_extreme"`
	ContrarianSignal string  `json:"contrarian_signal"`
	DataQuality      string  `json:"data_quality"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SentimentMetric) TableName() string {
	return "sentiment_metrics"
}
