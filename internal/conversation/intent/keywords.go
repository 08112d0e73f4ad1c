package intent

// category is one keyword group contributing a capped, signed adjustment to
// a component score. Matches are counted as case-insensitive substrings of
// the concatenated user text.
type category struct {
	keywords []string
	perMatch float64
	cap      float64
}

var (
	highFinancialReadiness = category{
		keywords: []string{
			"pre-approved", "pre approved", "preapproved", "cash buyer",
			"paying cash", "approved for", "lender", "proof of funds",
			"down payment saved", "funds ready",
		},
		perMatch: 20, cap: 60,
	}
	lowFinancialReadiness = category{
		keywords: []string{
			"can't afford", "cannot afford", "no savings", "bad credit",
			"need to save", "credit issues",
		},
		perMatch: -10, cap: -20,
	}

	budgetClaritySignals = category{
		keywords: []string{
			"$", "budget", "price range", "up to", "around", "max price",
			"between", "spend",
		},
		perMatch: 15, cap: 50,
	}

	financingSignals = category{
		keywords: []string{
			"mortgage", "loan", "financing", "down payment", "interest rate",
			"pre-approved", "pre approved", "cash", "fha", "va loan", "conventional",
		},
		perMatch: 15, cap: 60,
	}
	financingDoubt = category{
		keywords: []string{
			"haven't talked to a lender", "not sure about financing",
			"don't know if i qualify",
		},
		perMatch: -10, cap: -20,
	}

	highUrgency = category{
		keywords: []string{
			"asap", "immediately", "right away", "this week", "this weekend",
			"this month", "urgent", "ready to tour", "ready to buy", "ready now",
		},
		perMatch: 20, cap: 60,
	}
	lowUrgency = category{
		keywords: []string{
			"just browsing", "just looking", "someday", "no rush", "eventually",
			"next year", "not in a hurry",
		},
		perMatch: -10, cap: -20,
	}

	timelinePressureSignals = category{
		keywords: []string{
			"lease ends", "lease is up", "relocating", "relocation",
			"job starts", "moving for work", "before school starts",
			"baby on the way", "closing on our current",
		},
		perMatch: 20, cap: 60,
	}

	consequenceSignals = category{
		keywords: []string{
			"prices are rising", "prices keep going up", "before rates",
			"rates go up", "miss out", "don't want to lose", "inventory is low",
			"market is moving",
		},
		perMatch: 15, cap: 45,
	}

	preferenceSignals = category{
		keywords: []string{
			"bedroom", "bathroom", "garage", "yard", "pool", "school district",
			"neighborhood", "single family", "condo", "townhouse", "new construction",
			"square feet", "sqft",
		},
		perMatch: 12, cap: 60,
	}

	realismSignals = category{
		keywords: []string{
			"competitive", "over asking", "comps", "understand the market",
			"fair price", "market value",
		},
		perMatch: 10, cap: 30,
	}
	unrealisticSignals = category{
		keywords: []string{
			"lowball", "way under asking", "a steal", "desperate seller",
		},
		perMatch: -10, cap: -20,
	}

	authoritySignals = category{
		keywords: []string{
			"my decision", "i'm ready", "i am ready", "we're ready",
			"we are ready", "we've decided", "we both want",
		},
		perMatch: 15, cap: 40,
	}
	deferredAuthority = category{
		keywords: []string{
			"need to ask", "have to check with", "talk to my", "run it by",
			"my parents", "convince my",
		},
		perMatch: -15, cap: -30,
	}
)
