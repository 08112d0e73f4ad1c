package finance

import (
	"regexp"
	"strconv"
	"strings"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
)

var (
	dollarAmountRe = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*([km])?`)
	bareAmountRe   = regexp.MustCompile(`\b([0-9][0-9,]*(?:\.[0-9]+)?)\s*([km])?\b`)
)

// ExtractBudget scans conversation text for price amounts. Dollar-prefixed
// amounts win; bare numbers are a fallback. Bare tokens under the shorthand
// cutoff are discarded because they are almost always bedroom or bathroom
// counts, and tokens inside the shorthand band are treated as thousands
// ("450k" and "450" both mean 450000).
//
// Two or more amounts produce a {min,max} bracket. A single amount becomes
// the maximum with a synthesized minimum at a configured fraction of it.
// No amounts means no budget.
func ExtractBudget(text string, cfg config.Finance) *domain.BudgetRange {
	lower := strings.ToLower(text)

	amounts := parseAmounts(dollarAmountRe.FindAllStringSubmatch(lower, -1), cfg)
	if len(amounts) == 0 {
		amounts = parseAmounts(bareAmountRe.FindAllStringSubmatch(lower, -1), cfg)
	}
	if len(amounts) == 0 {
		return nil
	}

	min, max := amounts[0], amounts[0]
	for _, a := range amounts[1:] {
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
	}

	if len(amounts) == 1 {
		return &domain.BudgetRange{
			Min: int64(float64(max) * cfg.BudgetMinFraction),
			Max: max,
		}
	}
	return &domain.BudgetRange{Min: min, Max: max}
}

func parseAmounts(matches [][]string, cfg config.Finance) []int64 {
	var amounts []int64
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		switch m[2] {
		case "k":
			value *= 1_000
		case "m":
			value *= 1_000_000
		default:
			if value < cfg.ShorthandMinValue {
				// Likely a bedroom/bathroom count, never a price.
				continue
			}
			if value < cfg.ShorthandMaxValue {
				value *= 1_000
			}
		}

		amounts = append(amounts, int64(value))
	}
	return amounts
}
