package rebalance

import "testing"

func TestPlanBuysTowardTargetWeight(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"AAPL": 0.5}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"AAPL": {Qty: 20, Price: 100, MarketValue: 2000},
		},
		Cash: 8000,
	}

	plan := p.Plan(snap)
	if len(plan.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(plan.Instructions))
	}
	ins := plan.Instructions[0]
	if ins.Side != SideBuy || ins.Code != "AAPL" {
		t.Fatalf("unexpected instruction: %+v", ins)
	}
	// target 10000*0.5=5000, current 2000, delta 3000 at price 100.
	if ins.Qty != 30 {
		t.Fatalf("expected qty 30, got %d", ins.Qty)
	}
	if plan.SimulatedCash != 5000 {
		t.Fatalf("expected simulated cash 5000, got %d", plan.SimulatedCash)
	}
}

func TestPlanSellCappedAtHeldQty(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"MSFT": 0.0}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"MSFT": {Qty: 10, Price: 100, MarketValue: 5000},
		},
	}

	plan := p.Plan(snap)
	if len(plan.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(plan.Instructions))
	}
	ins := plan.Instructions[0]
	if ins.Side != SideSell {
		t.Fatalf("expected sell, got %+v", ins)
	}
	// delta -5000 asks for 50 shares but only 10 are held.
	if ins.Qty != 10 {
		t.Fatalf("expected qty capped at 10, got %d", ins.Qty)
	}
	if plan.SimulatedCash != 1000 {
		t.Fatalf("expected simulated cash 1000, got %d", plan.SimulatedCash)
	}
}

func TestPlanBuyNeverExceedsCash(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"QQQ": 1.0}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"QQQ": {Price: 100},
		},
		Cash: 250,
	}

	plan := p.Plan(snap)
	if len(plan.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(plan.Instructions))
	}
	if qty := plan.Instructions[0].Qty; qty != 2 {
		t.Fatalf("expected qty 2, got %d", qty)
	}
	if plan.SimulatedCash != 50 {
		t.Fatalf("expected simulated cash 50, got %d", plan.SimulatedCash)
	}
}

func TestPlanSellProceedsFundBuys(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"AAPL": 1.0, "MSFT": 0.0}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"AAPL": {Price: 100},
			"MSFT": {Qty: 10, Price: 100, MarketValue: 1000},
		},
		Cash: 0,
	}

	plan := p.Plan(snap)
	if len(plan.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(plan.Instructions))
	}
	if plan.Instructions[0].Side != SideSell {
		t.Fatalf("expected sell first, got %+v", plan.Instructions[0])
	}
	buy := plan.Instructions[1]
	if buy.Side != SideBuy || buy.Code != "AAPL" {
		t.Fatalf("expected AAPL buy second, got %+v", buy)
	}
	// total 1000, target 1000, funded entirely by the sell proceeds.
	if buy.Qty != 10 {
		t.Fatalf("expected qty 10, got %d", buy.Qty)
	}
	if plan.SimulatedCash != 0 {
		t.Fatalf("expected simulated cash 0, got %d", plan.SimulatedCash)
	}
}

func TestPlanSkipsInstrumentWithoutPrice(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"AAPL": 0.5, "MSFT": 0.5}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"AAPL": {Price: 100},
		},
		Cash: 1000,
	}

	plan := p.Plan(snap)
	for _, ins := range plan.Instructions {
		if ins.Code == "MSFT" {
			t.Fatalf("unpriced instrument must not be traded: %+v", ins)
		}
	}
	if len(plan.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(plan.Instructions))
	}
}

func TestPlanTruncatesTowardZero(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"AAPL": 1.0}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"AAPL": {Price: 7},
		},
		Cash: 100,
	}

	plan := p.Plan(snap)
	if len(plan.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(plan.Instructions))
	}
	// 100/7 truncates to 14.
	if qty := plan.Instructions[0].Qty; qty != 14 {
		t.Fatalf("expected qty 14, got %d", qty)
	}
	if plan.SimulatedCash != 2 {
		t.Fatalf("expected simulated cash 2, got %d", plan.SimulatedCash)
	}
}

func TestPlanFractionalSellBelowOneShareIsDropped(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"AAPL": 0.5}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"AAPL": {Qty: 10, Price: 100, MarketValue: 1050},
		},
		Cash: 1000,
	}

	plan := p.Plan(snap)
	// total 2050, target 1025, delta -25 is under one share at price 100.
	if len(plan.Instructions) != 0 {
		t.Fatalf("expected no instructions, got %+v", plan.Instructions)
	}
	if plan.SimulatedCash != 1000 {
		t.Fatalf("expected simulated cash 1000, got %d", plan.SimulatedCash)
	}
}

func TestPlanEmptyWeights(t *testing.T) {
	p := &Planner{}
	plan := p.Plan(Snapshot{Cash: 500})
	if len(plan.Instructions) != 0 {
		t.Fatalf("expected no instructions, got %+v", plan.Instructions)
	}
	if plan.SimulatedCash != 500 {
		t.Fatalf("expected simulated cash 500, got %d", plan.SimulatedCash)
	}
}

func TestPlanDeterministicOrdering(t *testing.T) {
	p := &Planner{Weights: map[string]float64{"C": 0.2, "A": 0.2, "B": 0.2}}
	snap := Snapshot{
		Holdings: map[string]Holding{
			"A": {Price: 10},
			"B": {Price: 10},
			"C": {Price: 10},
		},
		Cash: 1000,
	}

	for i := 0; i < 10; i++ {
		plan := p.Plan(snap)
		if len(plan.Instructions) != 3 {
			t.Fatalf("expected 3 instructions, got %d", len(plan.Instructions))
		}
		for j, want := range []string{"A", "B", "C"} {
			if plan.Instructions[j].Code != want {
				t.Fatalf("run %d: expected %s at position %d, got %s", i, want, j, plan.Instructions[j].Code)
			}
		}
	}
}
