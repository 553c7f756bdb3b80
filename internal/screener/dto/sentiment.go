package dto

// Sentiment data quality tiers.
const (
	DataQualityComplete     = "complete"
	DataQualityPartial      = "partial"
	DataQualityInsufficient = "insufficient"
)

// Sentiment extreme classifications.
const (
	ExtremeBearish = "extreme_bearish"
	ExtremeBullish = "extreme_bullish"
	ExtremeNeutral = "neutral"
)

// Contrarian signal classifications.
const (
	SignalContrarianLong  = "contrarian_long"
	SignalContrarianShort = "contrarian_short"
	SignalNone            = "none"
)

// SymbolSentiment is the aggregated sentiment picture for one symbol within a
// batch. Rank is assigned against the batch, not in isolation.
type SymbolSentiment struct {
	Symbol string `json:"symbol"`

	PutCallRatioVolume *float64 `json:"put_call_ratio_volume"`
	PutCallRatioOI     *float64 `json:"put_call_ratio_oi"`
	CMF20              *float64 `json:"cmf_20"`

	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	Extreme     string  `json:"extreme"`
	Signal      string  `json:"signal"`
	DataQuality string  `json:"data_quality"`

	// FilterReason names the divergence tier that let the symbol through the
	// sentiment filter. Empty until the filter has run.
	FilterReason string `json:"filter_reason,omitempty"`
}

// FilterStatistics summarizes a two-step sentiment filter pass for logging
// and the run record.
type FilterStatistics struct {
	Input           int `json:"input"`
	PassedStep1     int `json:"passed_step1"`
	PassedStep2     int `json:"passed_step2"`
	CapApplied      int `json:"cap_applied"`
	Output          int `json:"output"`
	ContrarianLong  int `json:"contrarian_long"`
	ContrarianShort int `json:"contrarian_short"`
}
