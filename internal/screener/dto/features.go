package dto

// TechnicalFeatures is the normalized per-symbol feature set. Pointer fields
// are nil when the underlying price history is too short to compute them.
type TechnicalFeatures struct {
	Symbol string `json:"symbol"`

	SpotPrice float64 `json:"spot_price"`

	SMA20  *float64 `json:"sma_20"`
	SMA50  *float64 `json:"sma_50"`
	SMA200 *float64 `json:"sma_200"`

	HV20 *float64 `json:"hv_20"`
	HV60 *float64 `json:"hv_60"`

	RSI14 *float64 `json:"rsi_14"`

	ATMIV        *float64 `json:"atm_iv"`
	IVRank       float64  `json:"iv_rank"`
	IVPercentile float64  `json:"iv_percentile"`

	TrendStrength  float64 `json:"trend_strength"`
	TrendStability float64 `json:"trend_stability"`
	Below200SMA    bool    `json:"below_200sma"`
	InUptrend      bool    `json:"in_uptrend"`

	CMF20 *float64 `json:"cmf_20"`

	SupportLevel *float64 `json:"support_level"`

	BarCount int `json:"bar_count"`
}
