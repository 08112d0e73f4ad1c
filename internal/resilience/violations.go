package resilience

import "strings"

// violationPhrases maps each compliance category to the inbound phrases that
// trip it. Detection is deliberately broad: a false positive costs one human
// review, a false negative costs a regulatory incident.
var violationPhrases = []struct {
	category string
	phrases  []string
}{
	{ViolationFairHousing, []string{
		"no section 8", "without section 8", "no kids in the building",
		"no children", "white neighborhood", "only white", "no immigrants",
		"avoid minorities", "what race", "christian neighborhood",
		"steer me away from",
	}},
	{ViolationFinancialRegulation, []string{
		"inflate my income", "fake pay stub", "fake paystub",
		"hide this from the lender", "hide it from the lender",
		"under the table", "straw buyer", "skip the appraisal",
	}},
	{ViolationPrivacy, []string{
		"social security number", "their ssn", "owner's phone number",
		"seller's phone number", "their personal info",
	}},
	{ViolationLicensing, []string{
		"legal advice", "tax advice", "draft the contract",
		"review my contract", "is this contract binding",
	}},
}

// DetectViolation scans one inbound message for phrases the bot must not act
// on. Returns the first matching category in fixed order.
func DetectViolation(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, v := range violationPhrases {
		for _, phrase := range v.phrases {
			if strings.Contains(lower, phrase) {
				return v.category, true
			}
		}
	}
	return "", false
}
