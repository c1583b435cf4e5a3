package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a single open holding. The instrument code is the primary
// key, so there is at most one averaged lot per instrument; any sell
// against the code removes the whole row.
type Position struct {
	Code string `gorm:"type:varchar(20);primaryKey"`

	Qty       int64 `gorm:"not null"`
	AvgPrice  int64 `gorm:"not null"`
	RemainQty int64 `gorm:"not null;default:0"`

	OrderID string `gorm:"type:varchar(40);not null;index"`
	NumBuy  int    `gorm:"not null;default:1"`

	StopPrice int64           `gorm:"not null;default:0"`
	Fee       decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Tax       decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`

	BuyTime time.Time  `gorm:"type:timestamptz;not null"`
	DueDate *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Position) TableName() string {
	return "positions"
}
