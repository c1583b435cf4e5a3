// Package rebalance computes and submits the trades that move the
// portfolio toward its target allocation weights.
package rebalance

import (
	"sort"

	"go.uber.org/zap"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Holding is one instrument in the planning snapshot. Qty may be zero for
// an instrument that only appears through a target weight. Price must be a
// live quote; a holding without one is skipped for the cycle.
type Holding struct {
	Qty         int64
	Price       int64
	MarketValue int64
}

type Snapshot struct {
	Holdings map[string]Holding
	Cash     int64
}

type Instruction struct {
	Code  string
	Side  Side
	Qty   int64
	Price int64
}

// Plan is the ordered instruction list for one cycle: sells first, then
// buys. SimulatedCash is the running cash figure after crediting planned
// sell proceeds and debiting planned buys; it assumes every sell executes
// at the quoted price, so it can diverge from the broker's authoritative
// balance if a sell does not fully execute.
type Plan struct {
	Instructions  []Instruction
	SimulatedCash int64
}

// Planner is pure: no I/O, integer arithmetic only, every division
// truncated toward zero. Weights are fractions of total portfolio value
// and are used as-is, without normalization.
type Planner struct {
	Weights map[string]float64
	Logger  *zap.Logger
}

func (p *Planner) Plan(snap Snapshot) Plan {
	if p == nil || len(p.Weights) == 0 {
		return Plan{SimulatedCash: snap.Cash}
	}

	var total int64 = snap.Cash
	for _, h := range snap.Holdings {
		total += h.MarketValue
	}

	codes := make([]string, 0, len(p.Weights))
	for code := range p.Weights {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	type delta struct {
		code  string
		qty   int64
		price int64
	}
	var sells, buys []delta

	cash := snap.Cash
	for _, code := range codes {
		weight := p.Weights[code]
		h := snap.Holdings[code]
		if h.Price <= 0 {
			if p.Logger != nil {
				p.Logger.Warn("no live price, instrument skipped for this cycle", zap.String("code", code))
			}
			continue
		}

		targetValue := int64(float64(total) * weight)
		deltaValue := targetValue - h.MarketValue

		if deltaValue < 0 {
			qty := (-deltaValue) / h.Price
			if qty > h.Qty {
				qty = h.Qty
			}
			if qty >= 1 {
				sells = append(sells, delta{code: code, qty: qty, price: h.Price})
			}
		} else if deltaValue > 0 {
			buys = append(buys, delta{code: code, qty: deltaValue / h.Price, price: h.Price})
		}
	}

	plan := Plan{}
	// Sells go first; their proceeds fund the buy pass through the
	// simulated cash figure.
	for _, s := range sells {
		plan.Instructions = append(plan.Instructions, Instruction{Code: s.code, Side: SideSell, Qty: s.qty, Price: s.price})
		cash += s.qty * s.price
	}
	for _, b := range buys {
		qty := b.qty
		if affordable := cash / b.price; qty > affordable {
			qty = affordable
		}
		if qty < 1 {
			continue
		}
		plan.Instructions = append(plan.Instructions, Instruction{Code: b.code, Side: SideBuy, Qty: qty, Price: b.price})
		cash -= qty * b.price
	}
	plan.SimulatedCash = cash
	return plan
}
