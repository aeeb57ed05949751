package analysis

// Result is one stock's analysis as produced by the engine. It is immutable
// once decoded; the renderer and fan-out only ever read it.
type Result struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	SentimentScore  int    `json:"sentiment_score"`
	OperationAdvice string `json:"operation_advice"`
	TrendPrediction string `json:"trend_prediction"`
	AnalysisSummary string `json:"analysis_summary"`
	RiskWarning     string `json:"risk_warning,omitempty"`

	Dashboard *Dashboard `json:"dashboard,omitempty"`
}

// Dashboard is the engine's optional structured breakdown. Every section and
// sub-field may be absent; the renderer substitutes defaults rather than
// failing on partial data.
type Dashboard struct {
	CoreConclusion  *CoreConclusion  `json:"core_conclusion,omitempty"`
	BattlePlan      *BattlePlan      `json:"battle_plan,omitempty"`
	DataPerspective *DataPerspective `json:"data_perspective,omitempty"`
	Intelligence    *Intelligence    `json:"intelligence,omitempty"`
}

type CoreConclusion struct {
	OneLineDiagnosis string   `json:"one_line_diagnosis,omitempty"`
	CompositeScore   *float64 `json:"composite_score,omitempty"`
	TimeSensitivity  string   `json:"time_sensitivity,omitempty"`
}

type BattlePlan struct {
	SniperPoints     *SniperPoints     `json:"sniper_points,omitempty"`
	PositionStrategy *PositionStrategy `json:"position_strategy,omitempty"`
}

// SniperPoints carries pre-formatted price levels. The engine formats them
// for display; this side never does arithmetic on them.
type SniperPoints struct {
	IdealBuy   string `json:"ideal_buy,omitempty"`
	StopLoss   string `json:"stop_loss,omitempty"`
	TakeProfit string `json:"take_profit,omitempty"`
}

type PositionStrategy struct {
	SuggestedPosition string `json:"suggested_position,omitempty"`
	RiskControl       string `json:"risk_control,omitempty"`
}

type DataPerspective struct {
	MABiasPct    *float64 `json:"ma_bias_pct,omitempty"`
	VolumeStatus string   `json:"volume_status,omitempty"`
	ChipHealth   string   `json:"chip_health,omitempty"`
}

type Intelligence struct {
	RiskAlerts []string `json:"risk_alerts,omitempty"`
}
