// Package ledger applies broker execution reports to the durable
// order/position/trade-history state.
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kistrader/internal/client/kis"
	"kistrader/internal/models"
	"kistrader/internal/repository"
)

// ExecutionReport is one broker-confirmed fill, already detached from the
// gateway wire format.
type ExecutionReport struct {
	SideCode  string
	Code      string
	OrderRef  string
	FillQty   int64
	FillPrice int64
}

type Result struct {
	Buys    int
	Sells   int
	Skipped int
	Failed  int
}

// ExecutionLister is the slice of the broker gateway the reconciler pulls
// reports from.
type ExecutionLister interface {
	InquireExecutions(ctx context.Context, acct kis.AccountParams, filter kis.ExecutionsFilter) ([]kis.ExecutionRecord, error)
}

type Reconciler struct {
	Repo   repository.Ledger
	Logger *zap.Logger
}

// Apply processes reports strictly in input order. Each report runs in its
// own transaction: a commit failure rolls back that report alone and the
// batch continues. Lookup misses are skipped with a warning. Reports are
// not retried, and re-applying a report is not idempotent; a duplicate
// sell simply misses the already-deleted position.
func (r *Reconciler) Apply(ctx context.Context, reports []ExecutionReport) Result {
	var res Result
	if r == nil || r.Repo == nil {
		return res
	}
	for _, report := range reports {
		switch report.SideCode {
		case kis.SideCodeBuy:
			r.applyOne(ctx, report, &res, r.applyBuy)
		case kis.SideCodeSell:
			r.applyOne(ctx, report, &res, r.applySell)
		default:
			// The upstream query is side-filtered, so the aggregate "00"
			// code (or anything else) should never reach here. Counted so a
			// filter regression upstream stays visible.
			res.Skipped++
			if r.Logger != nil {
				r.Logger.Debug("execution report with unhandled side code ignored",
					zap.String("side_code", report.SideCode),
					zap.String("code", report.Code),
				)
			}
		}
	}
	return res
}

func (r *Reconciler) applyOne(ctx context.Context, report ExecutionReport, res *Result, fn func(context.Context, *gorm.DB, ExecutionReport, *Result) error) {
	err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return fn(ctx, tx, report, res)
	})
	if err != nil {
		res.Failed++
		if r.Logger != nil {
			r.Logger.Error("execution report rolled back",
				zap.String("side_code", report.SideCode),
				zap.String("code", report.Code),
				zap.String("order_ref", report.OrderRef),
				zap.Error(err),
			)
		}
	}
}

// applyBuy matches the report to its originating order and opens the
// position: average cost price is the order's cumulative notional divided
// by its quantity, integer-truncated.
func (r *Reconciler) applyBuy(ctx context.Context, tx *gorm.DB, report ExecutionReport, res *Result) error {
	order, err := r.Repo.GetOrderByRefTx(ctx, tx, report.OrderRef)
	if err != nil {
		return err
	}
	if order == nil {
		res.Skipped++
		if r.Logger != nil {
			r.Logger.Warn("buy execution references unknown order",
				zap.String("order_ref", report.OrderRef),
				zap.String("code", report.Code),
			)
		}
		return nil
	}

	now := time.Now().UTC()
	pos := &models.Position{
		Code:      order.Code,
		Qty:       order.Qty,
		AvgPrice:  order.AvgCostPrice(),
		RemainQty: order.RemainQty,
		OrderID:   order.OrderID,
		NumBuy:    1,
		Fee:       order.Fee,
		Tax:       order.Tax,
		BuyTime:   now,
	}
	if err := r.Repo.CreatePositionTx(ctx, tx, pos); err != nil {
		return err
	}
	if err := r.Repo.UpdateOrderStatusTx(ctx, tx, order.OrderID, models.OrderStatusFilled); err != nil {
		return err
	}
	res.Buys++
	if r.Logger != nil {
		r.Logger.Info("position opened",
			zap.String("code", pos.Code),
			zap.Int64("qty", pos.Qty),
			zap.Int64("avg_price", pos.AvgPrice),
			zap.String("order_id", order.OrderID),
		)
	}
	return nil
}

// applySell closes the single open lot for the instrument: one closed
// trade is written atomically with the position delete, and the
// originating sell order moves to sell_completed.
func (r *Reconciler) applySell(ctx context.Context, tx *gorm.DB, report ExecutionReport, res *Result) error {
	pos, err := r.Repo.GetPositionByCodeTx(ctx, tx, report.Code)
	if err != nil {
		return err
	}
	if pos == nil {
		res.Skipped++
		if r.Logger != nil {
			r.Logger.Warn("sell execution for instrument with no open position",
				zap.String("code", report.Code),
				zap.String("order_ref", report.OrderRef),
			)
		}
		return nil
	}

	now := time.Now().UTC()
	trade := &models.ClosedTrade{
		Code:      pos.Code,
		AvgPrice:  pos.AvgPrice,
		Qty:       pos.Qty,
		SellPrice: report.FillPrice,
		BuyPrice:  pos.AvgPrice,
		StopPrice: pos.StopPrice,
		NumBuy:    pos.NumBuy,
		Profit:    (report.FillPrice - pos.AvgPrice) * pos.Qty,
		Fee:       pos.Fee,
		Tax:       pos.Tax,
		BuyTime:   pos.BuyTime,
		DueDate:   pos.DueDate,
		SellTime:  now,
		OrderID:   pos.OrderID,
	}
	if err := r.Repo.CreateClosedTradeTx(ctx, tx, trade); err != nil {
		return err
	}
	if err := r.Repo.DeletePositionTx(ctx, tx, pos.Code); err != nil {
		return err
	}

	sellOrder, err := r.Repo.GetOrderByRefTx(ctx, tx, report.OrderRef)
	if err != nil {
		return err
	}
	if sellOrder != nil {
		if err := r.Repo.UpdateOrderStatusTx(ctx, tx, sellOrder.OrderID, models.OrderStatusSellCompleted); err != nil {
			return err
		}
	} else if r.Logger != nil {
		r.Logger.Warn("sell execution references unknown order; position closed anyway",
			zap.String("order_ref", report.OrderRef),
			zap.String("code", report.Code),
		)
	}

	res.Sells++
	if r.Logger != nil {
		r.Logger.Info("position closed",
			zap.String("code", pos.Code),
			zap.Int64("qty", pos.Qty),
			zap.Int64("sell_price", report.FillPrice),
			zap.Int64("profit", trade.Profit),
		)
	}
	return nil
}

// ReconcileFromBroker pulls filled execution reports for the date range
// from the gateway and applies them.
func (r *Reconciler) ReconcileFromBroker(ctx context.Context, gateway ExecutionLister, acct kis.AccountParams, start, end time.Time) (Result, error) {
	if r == nil || gateway == nil {
		return Result{}, nil
	}
	records, err := gateway.InquireExecutions(ctx, acct, kis.ExecutionsFilter{
		Start:      start,
		End:        end,
		SideCode:   kis.SideCodeAll,
		FilledCode: "01",
	})
	if err != nil {
		return Result{}, err
	}
	reports := make([]ExecutionReport, 0, len(records))
	for _, rec := range records {
		ref := rec.OrigOrderNo
		if ref == "" {
			ref = rec.OrderNo
		}
		reports = append(reports, ExecutionReport{
			SideCode:  rec.SideCode,
			Code:      rec.Code,
			OrderRef:  ref,
			FillQty:   rec.FillQty,
			FillPrice: rec.FillPrice,
		})
	}
	return r.Apply(ctx, reports), nil
}
