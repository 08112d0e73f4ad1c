package domain

// Temperature is the categorical buyer interest label derived from the
// overall intent composite.
type Temperature string

const (
	TempHot      Temperature = "hot"
	TempWarm     Temperature = "warm"
	TempLukewarm Temperature = "lukewarm"
	TempCold     Temperature = "cold"
	TempIceCold  Temperature = "ice_cold"
)

// IntentProfile is the immutable output of one scoring pass. A new profile
// replaces the previous one on every turn; it is never mutated in place.
//
// Nine component scores feed three weighted composites:
//   - financial group: FinancialReadiness, BudgetClarity, FinancingSignal
//   - urgency group: Urgency, TimelinePressure, ConsequenceAwareness
//   - preference group: PreferenceClarity, MarketRealism, DecisionAuthority
type IntentProfile struct {
	FinancialReadiness   float64 `json:"financialReadiness"`
	BudgetClarity        float64 `json:"budgetClarity"`
	FinancingSignal      float64 `json:"financingSignal"`
	Urgency              float64 `json:"urgency"`
	TimelinePressure     float64 `json:"timelinePressure"`
	ConsequenceAwareness float64 `json:"consequenceAwareness"`
	PreferenceClarity    float64 `json:"preferenceClarity"`
	MarketRealism        float64 `json:"marketRealism"`
	DecisionAuthority    float64 `json:"decisionAuthority"`

	FinancialComposite  float64 `json:"financialComposite"`
	UrgencyComposite    float64 `json:"urgencyComposite"`
	PreferenceComposite float64 `json:"preferenceComposite"`
	OverallScore        float64 `json:"overallScore"`

	Temperature Temperature `json:"temperature"`
	NextStep    Step        `json:"nextStep"`
	Confidence  float64     `json:"confidence"`
	Turns       int         `json:"turns"`
}
