package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order lifecycle. Submitted orders move to filled (buy matched to a
// position), sell_completed (sell closed a position) or cancelled; all
// three are terminal. Rows are never deleted.
const (
	OrderStatusSubmitted     = "submitted"
	OrderStatusFilled        = "filled"
	OrderStatusSellCompleted = "sell_completed"
	OrderStatusCancelled     = "cancelled"
)

type Order struct {
	OrderID       string `gorm:"type:varchar(40);primaryKey"`
	BrokerOrderNo string `gorm:"type:varchar(40);index"`

	Code      string `gorm:"type:varchar(20);not null;index"`
	Name      string `gorm:"type:varchar(100)"`
	OrderType string `gorm:"type:varchar(30);not null"`

	Qty       int64 `gorm:"not null"`
	RemainQty int64 `gorm:"not null;default:0"`
	// Price * Qty at submission time; the average cost price of a position
	// created from this order is CumPrice / Qty, truncated.
	CumPrice int64 `gorm:"not null"`

	Fee decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Tax decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`

	Status string `gorm:"type:varchar(20);not null;default:'submitted';index"`
	// Raw broker acknowledgement, kept for audit only.
	RawAck datatypes.JSON `gorm:"type:jsonb"`

	OrderTime time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// AvgCostPrice is the position entry price derived from this order,
// integer-truncated, never rounded.
func (o Order) AvgCostPrice() int64 {
	if o.Qty <= 0 {
		return 0
	}
	return o.CumPrice / o.Qty
}
