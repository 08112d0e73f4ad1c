package domain

// ObjectionType is a recognized buyer objection category.
type ObjectionType string

const (
	ObjectionNone              ObjectionType = ""
	ObjectionPriceShock        ObjectionType = "price_shock"
	ObjectionAnalysisParalysis ObjectionType = "analysis_paralysis"
	ObjectionSharedDecision    ObjectionType = "shared_decision"
	ObjectionTiming            ObjectionType = "timing"
	ObjectionLowCommitment     ObjectionType = "low_commitment"
)

// PriceRelated reports whether the objection concerns affordability, which
// lets the handler attach a computed monthly payment talking point.
func (t ObjectionType) PriceRelated() bool {
	return t == ObjectionPriceShock
}
