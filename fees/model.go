// Package fees models the cost of executing against maker/taker fee
// schedules: expected cost per strategy, the cost-minimizing maker/taker
// split, and cross-venue comparison.
package fees

import (
	"errors"
	"fmt"
)

// Strategy names an execution style.
type Strategy string

const (
	Taker Strategy = "taker"
	Maker Strategy = "maker"
	Mixed Strategy = "mixed"
)

var (
	ErrUnknownStrategy = errors.New("unknown fee strategy")
	ErrInvalidParams   = errors.New("invalid fee parameters")
)

// Params holds one venue's fee schedule and fill behavior, normalized to
// fractional form. Construct with NewParams, which takes basis points.
type Params struct {
	makerRebate     float64 // fraction of notional
	takerFee        float64
	spread          float64
	fillProbability float64
}

// NewParams builds fee parameters from basis-point inputs and a fill
// probability in [0, 1].
func NewParams(makerRebateBps, takerFeeBps, spreadBps, fillProbability float64) (Params, error) {
	if makerRebateBps < 0 || takerFeeBps < 0 || spreadBps < 0 {
		return Params{}, fmt.Errorf("%w: negative bps inputs (%v, %v, %v)",
			ErrInvalidParams, makerRebateBps, takerFeeBps, spreadBps)
	}
	if fillProbability < 0 || fillProbability > 1 {
		return Params{}, fmt.Errorf("%w: fill probability %v", ErrInvalidParams, fillProbability)
	}
	return Params{
		makerRebate:     makerRebateBps / 10000,
		takerFee:        takerFeeBps / 10000,
		spread:          spreadBps / 10000,
		fillProbability: fillProbability,
	}, nil
}

// FillProbability returns the configured limit-order fill probability.
func (p Params) FillProbability() float64 { return p.fillProbability }

// ExpectedCost returns the expected cost of executing orderSize at the
// given mid price under a strategy. Taker pays the half spread and the
// taker fee. Maker earns the half spread and rebate when filled, weighted
// by fill probability; an unfilled limit order is assumed to execute later
// at the reference price. Mixed splits by OptimalMakerRatio.
func (p Params) ExpectedCost(orderSize, price float64, isBuy bool, strategy Strategy) (float64, error) {
	if orderSize < 0 || price <= 0 {
		return 0, fmt.Errorf("%w: size %v price %v", ErrInvalidParams, orderSize, price)
	}
	halfSpread := p.spread / 2
	notional := orderSize * price

	switch strategy {
	case Taker:
		spreadCost := notional * halfSpread
		if !isBuy {
			spreadCost = -spreadCost
		}
		return notional + spreadCost + notional*p.takerFee, nil

	case Maker:
		spreadCost := -notional * halfSpread
		if !isBuy {
			spreadCost = -spreadCost
		}
		filled := notional + spreadCost - notional*p.makerRebate
		unfilled := notional
		return p.fillProbability*filled + (1-p.fillProbability)*unfilled, nil

	case Mixed:
		ratio := p.OptimalMakerRatio(isBuy)
		makerCost, err := p.ExpectedCost(orderSize*ratio, price, isBuy, Maker)
		if err != nil {
			return 0, err
		}
		takerCost, err := p.ExpectedCost(orderSize*(1-ratio), price, isBuy, Taker)
		if err != nil {
			return 0, err
		}
		return makerCost + takerCost, nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// OptimalMakerRatio returns the fraction of an order to post passively,
// in [0, 1]. When the per-unit taker cost does not exceed the
// fill-probability-weighted maker cost the ratio is exactly 0: there is no
// point posting maker orders when crossing already dominates in expectation.
func (p Params) OptimalMakerRatio(isBuy bool) float64 {
	halfSpread := p.spread / 2

	var takerCost, makerCost float64
	if isBuy {
		takerCost = halfSpread + p.takerFee
		makerCost = -halfSpread - p.makerRebate
	} else {
		takerCost = -halfSpread + p.takerFee
		makerCost = halfSpread - p.makerRebate
	}

	costDiff := takerCost - p.fillProbability*makerCost
	if costDiff <= 0 {
		return 0
	}
	denom := p.spread + p.takerFee + p.makerRebate
	if denom == 0 {
		return 0
	}
	ratio := costDiff / denom
	if ratio > 1 {
		return 1
	}
	return ratio
}
