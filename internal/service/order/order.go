package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/models"
)

// Service owns the order lifecycle: placement with stock decrement,
// status transitions with cancellation restock, and deletion.
type Service struct {
	DB *gorm.DB
}

type PlaceItem struct {
	FlowerID uint `json:"flower_id"`
	Quantity int  `json:"quantity"`
}

type PlaceRequest struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	PaymentMethod   string
	Notes           string
	UserID          *uint
	Items           []PlaceItem
}

// StockShortage is attached to insufficient-stock conflicts so the
// client sees requested vs available per offending item.
type StockShortage struct {
	FlowerID  uint   `json:"flower_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Place validates the request against the catalog and, if everything
// checks out, creates the order with its items and decrements stock in
// a single transaction. Either the whole order lands or nothing does.
//
// The decrement is guarded (stock_quantity >= quantity in the UPDATE
// predicate), so a concurrent order racing past the validation read
// aborts here instead of driving stock negative.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*models.Order, error) {
	if req.CustomerName == "" || req.CustomerPhone == "" || req.CustomerAddress == "" {
		return nil, apperr.Validation("customer name, phone and address are required")
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validation("order items are required")
	}
	for _, it := range req.Items {
		if it.FlowerID == 0 {
			return nil, apperr.Validation("flower_id is required for every item")
		}
		if it.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be greater than zero")
		}
	}

	ids := make([]uint, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.FlowerID)
	}

	var flowers []models.Flower
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&flowers).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Flower, len(flowers))
	for _, f := range flowers {
		byID[f.ID] = f
	}

	var missing []uint
	var unavailable []string
	var shortages []StockShortage
	for _, it := range req.Items {
		f, ok := byID[it.FlowerID]
		if !ok {
			missing = append(missing, it.FlowerID)
			continue
		}
		if !f.IsAvailable {
			unavailable = append(unavailable, f.Name)
			continue
		}
		if it.Quantity > f.StockQuantity {
			shortages = append(shortages, StockShortage{
				FlowerID:  f.ID,
				Name:      f.Name,
				Requested: it.Quantity,
				Available: f.StockQuantity,
			})
		}
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound(fmt.Sprintf("flowers not found: %v", missing)).
			WithDetails(map[string]any{"missing_flower_ids": missing})
	}
	if len(unavailable) > 0 {
		return nil, apperr.Conflict(fmt.Sprintf("flowers not available: %v", unavailable))
	}
	if len(shortages) > 0 {
		return nil, apperr.Conflict("insufficient stock").
			WithDetails(map[string]any{"shortages": shortages})
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		f := byID[it.FlowerID]
		lineTotal := f.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, models.OrderItem{
			FlowerID:  it.FlowerID,
			Quantity:  it.Quantity,
			UnitPrice: f.Price,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}

	ord := models.Order{
		Number:          uuid.NewString(),
		UserID:          req.UserID,
		Status:          models.StatusNew,
		TotalAmount:     total,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PaymentMethod:   paymentMethod,
		Notes:           req.Notes,
		Items:           items,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ord).Error; err != nil {
			return err
		}
		for _, it := range ord.Items {
			res := tx.Model(&models.Flower{}).
				Where("id = ? AND stock_quantity >= ?", it.FlowerID, it.Quantity).
				UpdateColumns(map[string]interface{}{
					"stock_quantity": gorm.Expr("stock_quantity - ?", it.Quantity),
					"popularity":     gorm.Expr("popularity + ?", it.Quantity),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict(fmt.Sprintf("stock changed for flower %d, order aborted", it.FlowerID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, ord.ID)
}

// Get returns the composed order: items with their flower summaries
// and the owning user, if any.
func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var ord models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items.Flower").
		Preload("User").
		First(&ord, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("order %d not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (s *Service) ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	q := s.DB.WithContext(ctx).
		Preload("Items.Flower").
		Preload("User").
		Order("created_at DESC")
	if status != "" {
		if !status.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("invalid status %q, allowed: %v", status, models.OrderStatuses()))
		}
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items.Flower").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves the order to status. Entering cancelled from any
// other status restores each item's quantity onto its flower inside
// the same transaction; re-cancelling is a no-op on stock.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid status %q, allowed: %v", status, models.OrderStatuses()))
	}

	var ord models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ord, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(fmt.Sprintf("order %d not found", id))
			}
			return err
		}

		if status == models.StatusCancelled && ord.Status != models.StatusCancelled {
			if err := restockItems(tx, ord.ID); err != nil {
				return err
			}
		}

		return tx.Model(&ord).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

// Delete removes the order and its items. An order that was never
// cancelled gets its stock compensated first, exactly as cancellation
// would have done.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ord models.Order
		if err := tx.First(&ord, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(fmt.Sprintf("order %d not found", id))
			}
			return err
		}

		if ord.Status != models.StatusCancelled {
			if err := restockItems(tx, ord.ID); err != nil {
				return err
			}
		}

		if err := tx.Where("order_id = ?", ord.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ord).Error
	})
}

func restockItems(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	for _, it := range items {
		err := tx.Model(&models.Flower{}).
			Where("id = ?", it.FlowerID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", it.Quantity)).Error
		if err != nil {
			return err
		}
	}
	return nil
}
