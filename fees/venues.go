package fees

import "fmt"

// Venue is one trading venue's fee schedule in basis-point form, as quoted
// on fee pages.
type Venue struct {
	Name            string  `yaml:"name"`
	MakerRebateBps  float64 `yaml:"makerRebateBps"`
	TakerFeeBps     float64 `yaml:"takerFeeBps"`
	SpreadBps       float64 `yaml:"spreadBps"`
	FillProbability float64 `yaml:"fillProbability"`
}

// VenueResult is the expected cost of one venue/strategy combination.
// Savings are measured against the raw notional: cost saved for buys,
// extra proceeds for sells.
type VenueResult struct {
	Venue        string
	Strategy     Strategy
	ExpectedCost float64
	Savings      float64
}

// AnalyzeVenueSelection evaluates every venue under every strategy and
// returns all results plus the best combination: minimum cost for buys,
// maximum proceeds for sells.
func AnalyzeVenueSelection(venues []Venue, orderSize, price float64, isBuy bool) ([]VenueResult, VenueResult, error) {
	if len(venues) == 0 {
		return nil, VenueResult{}, fmt.Errorf("%w: no venues", ErrInvalidParams)
	}

	notional := orderSize * price
	strategies := []Strategy{Taker, Maker, Mixed}
	results := make([]VenueResult, 0, len(venues)*len(strategies))

	for _, v := range venues {
		params, err := NewParams(v.MakerRebateBps, v.TakerFeeBps, v.SpreadBps, v.FillProbability)
		if err != nil {
			return nil, VenueResult{}, fmt.Errorf("venue %q: %w", v.Name, err)
		}
		for _, strategy := range strategies {
			cost, err := params.ExpectedCost(orderSize, price, isBuy, strategy)
			if err != nil {
				return nil, VenueResult{}, fmt.Errorf("venue %q: %w", v.Name, err)
			}
			savings := notional - cost
			if !isBuy {
				savings = cost - notional
			}
			results = append(results, VenueResult{
				Venue:        v.Name,
				Strategy:     strategy,
				ExpectedCost: cost,
				Savings:      savings,
			})
		}
	}

	best := results[0]
	for _, r := range results[1:] {
		if isBuy && r.ExpectedCost < best.ExpectedCost {
			best = r
		}
		if !isBuy && r.ExpectedCost > best.ExpectedCost {
			best = r
		}
	}
	return results, best, nil
}
