package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kistrader/internal/models"
)

type ListOrdersParams struct {
	Status *string
	Code   *string
	Limit  int
	Offset int
}

type ListClosedTradesParams struct {
	Code   *string
	Since  *time.Time
	Limit  int
	Offset int
}

// Ledger is the durable store for orders, open positions and closed-trade
// history. The *Tx variants run against a transaction handle obtained from
// InTx; one execution report (or one order creation) maps to exactly one
// InTx call, so a commit failure rolls back that item alone.
type Ledger interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Orders.
	CreateOrder(ctx context.Context, item *models.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	GetOrderByRefTx(ctx context.Context, tx *gorm.DB, ref string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) error
	UpdateOrderStatusTx(ctx context.Context, tx *gorm.DB, orderID string, status string) error
	ListOrders(ctx context.Context, params ListOrdersParams) ([]models.Order, error)
	CountOrders(ctx context.Context, params ListOrdersParams) (int64, error)

	// Positions.
	CreatePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error
	GetPositionByCode(ctx context.Context, code string) (*models.Position, error)
	GetPositionByCodeTx(ctx context.Context, tx *gorm.DB, code string) (*models.Position, error)
	DeletePositionTx(ctx context.Context, tx *gorm.DB, code string) error
	ListPositions(ctx context.Context) ([]models.Position, error)

	// Closed trades.
	CreateClosedTradeTx(ctx context.Context, tx *gorm.DB, item *models.ClosedTrade) error
	ListClosedTrades(ctx context.Context, params ListClosedTradesParams) ([]models.ClosedTrade, error)
	CountClosedTrades(ctx context.Context, params ListClosedTradesParams) (int64, error)
}
