package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"kistrader/internal/models"
	"kistrader/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Orders -----------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, item *models.Order) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, nil
	}
	var item models.Order
	err := s.db.WithContext(ctx).Model(&models.Order{}).Where("order_id = ?", orderID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetOrderByRefTx resolves an execution report's originating-order
// reference. Reports carry whichever identifier the broker echoes back, so
// both the caller-generated id and the broker order number match.
func (s *Store) GetOrderByRefTx(ctx context.Context, tx *gorm.DB, ref string) (*models.Order, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	var item models.Order
	err := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? OR broker_order_no = ?", ref, ref).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return updateOrderStatus(s.db.WithContext(ctx), orderID, status)
}

func (s *Store) UpdateOrderStatusTx(ctx context.Context, tx *gorm.DB, orderID string, status string) error {
	if s == nil || tx == nil {
		return nil
	}
	return updateOrderStatus(tx.WithContext(ctx), orderID, status)
}

func updateOrderStatus(db *gorm.DB, orderID string, status string) error {
	orderID = strings.TrimSpace(orderID)
	status = strings.TrimSpace(status)
	if orderID == "" || status == "" {
		return nil
	}
	return db.Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).
		Error
}

func (s *Store) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrderFilters(s.db.WithContext(ctx).Model(&models.Order{}), params)
	query = query.Order("order_time desc")
	var items []models.Order
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyOrderFilters(s.db.WithContext(ctx).Model(&models.Order{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyOrderFilters(query *gorm.DB, params repository.ListOrdersParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	return query
}

// --- Positions --------------------------------------------------------------

func (s *Store) CreatePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPositionByCode(ctx context.Context, code string) (*models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getPositionByCode(s.db.WithContext(ctx), code)
}

func (s *Store) GetPositionByCodeTx(ctx context.Context, tx *gorm.DB, code string) (*models.Position, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	return getPositionByCode(tx.WithContext(ctx), code)
}

func getPositionByCode(db *gorm.DB, code string) (*models.Position, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var item models.Position
	err := db.Model(&models.Position{}).Where("code = ?", code).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeletePositionTx(ctx context.Context, tx *gorm.DB, code string) error {
	if s == nil || tx == nil {
		return nil
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	return tx.WithContext(ctx).Where("code = ?", code).Delete(&models.Position{}).Error
}

func (s *Store) ListPositions(ctx context.Context) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	if err := s.db.WithContext(ctx).Model(&models.Position{}).Order("code asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Closed trades ----------------------------------------------------------

func (s *Store) CreateClosedTradeTx(ctx context.Context, tx *gorm.DB, item *models.ClosedTrade) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListClosedTrades(ctx context.Context, params repository.ListClosedTradesParams) ([]models.ClosedTrade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.ClosedTrade{}), params)
	query = query.Order("sell_time desc")
	var items []models.ClosedTrade
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountClosedTrades(ctx context.Context, params repository.ListClosedTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.ClosedTrade{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyTradeFilters(query *gorm.DB, params repository.ListClosedTradesParams) *gorm.DB {
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("sell_time >= ?", *params.Since)
	}
	return query
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
