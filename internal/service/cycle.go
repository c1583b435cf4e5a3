// Package service orchestrates the periodic batch cycle:
// reconcile -> plan -> execute.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"kistrader/internal/client/kis"
	"kistrader/internal/config"
	"kistrader/internal/ledger"
	"kistrader/internal/metrics"
	"kistrader/internal/rebalance"
)

// Broker capabilities, injected separately rather than merged into one
// account object.
type BalanceInquirer interface {
	InquireBalance(ctx context.Context, acct kis.AccountParams) (*kis.Balance, error)
}

type MarginInquirer interface {
	GetForeignMargin(ctx context.Context, acct kis.AccountParams) ([]kis.MarginEntry, error)
}

type QuoteGetter interface {
	GetPrice(ctx context.Context, exchangeCd, code string) (*kis.Quote, error)
}

// ErrCycleInFlight reports that a cycle is already running. The guard only
// absorbs an overlapping cron fire or a manual trigger racing the
// schedule; it is not a concurrency guarantee for the ledger.
var ErrCycleInFlight = errors.New("cycle already in flight")

type CycleSummary struct {
	Reconciled    ledger.Result
	Planned       int
	Submitted     int
	SubmitFailed  int
	SimulatedCash int64
}

type CycleService struct {
	Balance    BalanceInquirer
	Margin     MarginInquirer
	Quotes     QuoteGetter
	Executions ledger.ExecutionLister

	Reconciler *ledger.Reconciler
	Planner    *rebalance.Planner
	Executor   *rebalance.Executor

	Account config.AccountConfig
	Logger  *zap.Logger
	Metrics *metrics.Recorder

	inFlight chan struct{}
}

func NewCycleService() *CycleService {
	return &CycleService{inFlight: make(chan struct{}, 1)}
}

// RunOnce executes a full cycle. Reconciliation runs first so the ledger
// reflects fills from the previous cycle; planning reads the broker's
// authoritative balance and live quotes; execution submits in plan order.
// Individual items fail independently: a reconcile fetch failure or a
// rejected order does not abort the cycle.
func (s *CycleService) RunOnce(ctx context.Context) (CycleSummary, error) {
	var summary CycleSummary
	if s == nil {
		return summary, nil
	}

	select {
	case s.inFlight <- struct{}{}:
		defer func() { <-s.inFlight }()
	default:
		return summary, ErrCycleInFlight
	}

	acct := kis.AccountParams{
		CANO:       s.Account.CANO,
		AcntPrdtCd: s.Account.AcntPrdtCd,
		ExchangeCd: s.Account.ExchangeCd,
		CurrencyCd: s.Account.CurrencyCd,
	}

	if s.Reconciler != nil && s.Executions != nil {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -1)
		res, err := s.Reconciler.ReconcileFromBroker(ctx, s.Executions, acct, start, end)
		if err != nil {
			// Stale ledger state does not poison planning: the snapshot
			// below comes from the broker, not from the ledger.
			if s.Logger != nil {
				s.Logger.Warn("execution inquiry failed, skipping reconciliation", zap.Error(err))
			}
		}
		summary.Reconciled = res
		if s.Metrics != nil {
			s.Metrics.RecordReports(res.Buys, res.Sells, res.Skipped, res.Failed)
		}
	}

	snap, err := s.buildSnapshot(ctx, acct)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordCycle(false)
		}
		return summary, err
	}

	plan := s.Planner.Plan(*snap)
	summary.Planned = len(plan.Instructions)
	summary.SimulatedCash = plan.SimulatedCash
	if s.Metrics != nil {
		s.Metrics.RecordSimulatedCash(plan.SimulatedCash)
	}

	if s.Executor != nil {
		for _, out := range s.Executor.Execute(ctx, plan) {
			if out.Err != nil {
				summary.SubmitFailed++
			} else {
				summary.Submitted++
			}
			if s.Metrics != nil {
				s.Metrics.RecordOrder(string(out.Instruction.Side), out.Err == nil)
			}
		}
	}

	if s.Metrics != nil {
		s.Metrics.RecordCycle(true)
	}
	if s.Logger != nil {
		s.Logger.Info("cycle finished",
			zap.Int("reconciled_buys", summary.Reconciled.Buys),
			zap.Int("reconciled_sells", summary.Reconciled.Sells),
			zap.Int("planned", summary.Planned),
			zap.Int("submitted", summary.Submitted),
			zap.Int("submit_failed", summary.SubmitFailed),
			zap.Int64("simulated_cash", summary.SimulatedCash),
		)
	}
	return summary, nil
}

// buildSnapshot assembles the planner input from the balance inquiry,
// per-instrument quotes, and the foreign-margin cash figure. Market value
// is recomputed as quote * qty so held and unheld instruments are priced
// consistently; an instrument whose quote fails is left out for the cycle.
func (s *CycleService) buildSnapshot(ctx context.Context, acct kis.AccountParams) (*rebalance.Snapshot, error) {
	bal, err := s.Balance.InquireBalance(ctx, acct)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("balance inquiry failed, cycle aborted", zap.Error(err))
		}
		return nil, err
	}

	held := make(map[string]kis.BalancePosition, len(bal.Positions))
	codes := make(map[string]struct{}, len(bal.Positions))
	for _, p := range bal.Positions {
		held[p.Code] = p
		codes[p.Code] = struct{}{}
	}
	if s.Planner != nil {
		for code := range s.Planner.Weights {
			codes[code] = struct{}{}
		}
	}

	snap := &rebalance.Snapshot{Holdings: make(map[string]rebalance.Holding, len(codes))}
	for code := range codes {
		quote, err := s.Quotes.GetPrice(ctx, acct.ExchangeCd, code)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("quote failed, instrument excluded from snapshot",
					zap.String("code", code), zap.Error(err))
			}
			continue
		}
		h := rebalance.Holding{Price: quote.Last}
		if p, ok := held[code]; ok {
			h.Qty = p.Qty
			h.MarketValue = quote.Last * p.Qty
		}
		snap.Holdings[code] = h
	}

	snap.Cash = s.availableCash(ctx, acct, bal)
	return snap, nil
}

// availableCash prefers the foreign-margin orderable amount; when that
// inquiry fails the balance-derived estimate stands in.
func (s *CycleService) availableCash(ctx context.Context, acct kis.AccountParams, bal *kis.Balance) int64 {
	if s.Margin != nil {
		entries, err := s.Margin.GetForeignMargin(ctx, acct)
		if err == nil {
			return kis.OrderableCash(entries, acct.CurrencyCd)
		}
		if s.Logger != nil {
			s.Logger.Warn("margin inquiry failed, falling back to balance estimate", zap.Error(err))
		}
	}
	return bal.CashEstimate()
}
