package rebalance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"kistrader/internal/client/kis"
	"kistrader/internal/config"
	"kistrader/internal/models"
	"kistrader/internal/repository"
)

// OrderSubmitter is the order-submission capability of the broker
// gateway, injected rather than reached through a merged account object.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req kis.SubmitOrderRequest) (*kis.OrderAck, error)
}

type Outcome struct {
	Instruction Instruction
	OrderID     string
	Err         error
}

// Executor submits planned instructions one at a time, in plan order. A
// successful broker acknowledgement creates the ledger Order row; any
// submission failure creates nothing and is reported back, with no retry.
type Executor struct {
	Gateway OrderSubmitter
	Repo    repository.Ledger
	Logger  *zap.Logger
	Account config.AccountConfig
}

func (e *Executor) Execute(ctx context.Context, plan Plan) []Outcome {
	if e == nil || e.Gateway == nil {
		return nil
	}
	outcomes := make([]Outcome, 0, len(plan.Instructions))
	for _, ins := range plan.Instructions {
		orderID, err := e.submitOne(ctx, ins)
		outcomes = append(outcomes, Outcome{Instruction: ins, OrderID: orderID, Err: err})
		if err != nil && e.Logger != nil {
			e.Logger.Error("order submission failed",
				zap.String("code", ins.Code),
				zap.String("side", string(ins.Side)),
				zap.Int64("qty", ins.Qty),
				zap.Error(err),
			)
		}
	}
	return outcomes
}

func (e *Executor) submitOne(ctx context.Context, ins Instruction) (string, error) {
	ack, err := e.Gateway.SubmitOrder(ctx, kis.SubmitOrderRequest{
		CANO:       e.Account.CANO,
		AcntPrdtCd: e.Account.AcntPrdtCd,
		ExchangeCd: e.Account.ExchangeCd,
		Code:       ins.Code,
		IsBuy:      ins.Side == SideBuy,
		Qty:        ins.Qty,
		Price:      ins.Price,
	})
	if err != nil {
		return "", err
	}

	orderType := "rebalance_sell"
	if ins.Side == SideBuy {
		orderType = "rebalance_buy"
	}
	order := &models.Order{
		OrderID:       uuid.NewString(),
		BrokerOrderNo: ack.OrderNo,
		Code:          ins.Code,
		Name:          ins.Code,
		OrderType:     orderType,
		Qty:           ins.Qty,
		RemainQty:     ins.Qty,
		CumPrice:      ins.Price * ins.Qty,
		Status:        models.OrderStatusSubmitted,
		RawAck:        datatypes.JSON(ack.Raw),
		OrderTime:     time.Now().UTC(),
	}
	if err := e.Repo.CreateOrder(ctx, order); err != nil {
		// The broker accepted the order but the ledger write failed; the
		// next reconciliation will see an execution it cannot match.
		if e.Logger != nil {
			e.Logger.Error("order accepted by broker but not recorded",
				zap.String("code", ins.Code),
				zap.String("broker_order_no", ack.OrderNo),
				zap.Error(err),
			)
		}
		return "", err
	}
	if e.Logger != nil {
		e.Logger.Info("order submitted",
			zap.String("order_id", order.OrderID),
			zap.String("broker_order_no", ack.OrderNo),
			zap.String("code", ins.Code),
			zap.String("side", string(ins.Side)),
			zap.Int64("qty", ins.Qty),
			zap.Int64("price", ins.Price),
		)
	}
	return order.OrderID, nil
}
