package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosedTrade is the append-only realized-trade history. One row is
// written atomically with the deletion of the position it closes and is
// never mutated afterward.
type ClosedTrade struct {
	TradeID uint64 `gorm:"primaryKey;autoIncrement"`

	Code string `gorm:"type:varchar(20);not null;index"`
	Name string `gorm:"type:varchar(100)"`

	AvgPrice  int64 `gorm:"not null"`
	Qty       int64 `gorm:"not null"`
	SellPrice int64 `gorm:"not null"`
	BuyPrice  int64 `gorm:"not null"`
	StopPrice int64 `gorm:"not null;default:0"`
	NumBuy    int   `gorm:"not null;default:1"`

	// (SellPrice - AvgPrice) * Qty.
	Profit int64 `gorm:"not null"`

	Fee decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Tax decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`

	BuyTime  time.Time  `gorm:"type:timestamptz;not null"`
	DueDate  *time.Time `gorm:"type:timestamptz"`
	SellTime time.Time  `gorm:"type:timestamptz;not null;index"`

	OrderID string `gorm:"type:varchar(40);not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ClosedTrade) TableName() string {
	return "trade_history"
}
