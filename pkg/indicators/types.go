package indicators

import "time"

// PurchaseTemperature reads how hot the buying intent is right now.
type PurchaseTemperature struct {
	Value      int    `json:"value"`
	Level      string `json:"level"`
	Rationale  string `json:"rationale"`
	Strategy   string `json:"strategy"`
	Confidence int    `json:"confidence"`
}

// JourneyStage places the customer on the awareness-to-purchase funnel.
type JourneyStage struct {
	Value              string `json:"value"`
	ProgressPercentage int    `json:"progress_percentage"`
	NextStage          string `json:"next_stage"`
	Rationale          string `json:"rationale"`
	Strategy           string `json:"strategy"`
	Confidence         int    `json:"confidence"`
}

// ChurnRisk estimates how likely the prospect is to walk away.
type ChurnRisk struct {
	Value       int      `json:"value"`
	Level       string   `json:"level"`
	RiskFactors []string `json:"risk_factors"`
	Rationale   string   `json:"rationale"`
	Strategy    string   `json:"strategy"`
	Confidence  int      `json:"confidence"`
}

// SalesPotential estimates deal value and close probability.
type SalesPotential struct {
	Value              float64 `json:"value"`
	Currency           string  `json:"currency"`
	Probability        int     `json:"probability"`
	EstimatedTimeframe string  `json:"estimated_timeframe"`
	Rationale          string  `json:"rationale"`
	Strategy           string  `json:"strategy"`
	Confidence         int     `json:"confidence"`
}

// SalesIndicators is the four-indicator block derived from the Customer DNA.
type SalesIndicators struct {
	PurchaseTemperature  PurchaseTemperature `json:"purchase_temperature"`
	CustomerJourneyStage JourneyStage        `json:"customer_journey_stage"`
	ChurnRisk            ChurnRisk           `json:"churn_risk"`
	SalesPotential       SalesPotential      `json:"sales_potential"`
	IsFallback           bool                `json:"is_fallback"`
	GeneratedAt          time.Time           `json:"generated_at"`
}

// TemperatureLevel buckets a 0..100 temperature value.
func TemperatureLevel(value int) string {
	switch {
	case value <= 33:
		return "cold"
	case value <= 66:
		return "warm"
	default:
		return "hot"
	}
}

// RiskLevel buckets a 0..100 churn risk value.
func RiskLevel(value int) string {
	switch {
	case value <= 33:
		return "low"
	case value <= 66:
		return "medium"
	default:
		return "high"
	}
}

// JourneyStages is the funnel in order.
var JourneyStages = []string{"awareness", "interest", "consideration", "evaluation", "decision", "purchase"}

// NextJourneyStage returns the stage after the given one, or the last stage
// when already at the end or unknown.
func NextJourneyStage(stage string) string {
	for i, s := range JourneyStages {
		if s == stage && i+1 < len(JourneyStages) {
			return JourneyStages[i+1]
		}
	}
	return JourneyStages[len(JourneyStages)-1]
}
