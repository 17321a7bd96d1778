package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restro-system/internal/cache"
	"restro-system/internal/database"
	"restro-system/internal/database/models"
	"restro-system/internal/services/pagination"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Policy controls how a paid bill reacts to later item changes.
type Policy struct {
	// FreezePaidBills keeps total_amount fixed once a bill is paid.
	FreezePaidBills bool
}

// Service keeps every Bill consistent with the item set of its Order and
// owns the Unpaid -> Paid transition.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	policy Policy
}

func NewService(db *gorm.DB, c *cache.Cache, policy Policy) *Service {
	return &Service{db: db, cache: c, policy: policy}
}

func recomputeKey(orderID uint) string {
	return fmt.Sprintf("bill:recompute:%d", orderID)
}

// OnOrderCreated creates the bill for orderID inside tx. It is idempotent:
// if the order already has a bill, that bill is returned untouched. The
// total of a new bill is filled in before the transaction commits.
func (s *Service) OnOrderCreated(tx *database.Tx, orderID uint) (*models.Bill, error) {
	bill := models.Bill{OrderID: orderID, TotalAmount: decimal.Zero}

	res := tx.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(&bill)
	if res.Error != nil {
		return nil, status.Errorf(codes.Internal, "failed to create bill: %v", res.Error)
	}

	if res.RowsAffected > 0 {
		s.OnOrderItemsChanged(tx, orderID)
	}

	var existing models.Bill
	if err := tx.DB.Where("order_id = ?", orderID).First(&existing).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load bill for order %d: %v", orderID, err)
	}
	return &existing, nil
}

// OnOrderItemsChanged schedules a recompute of the order's bill for the end
// of tx. Calling it several times in one transaction recomputes once, after
// the last item write.
func (s *Service) OnOrderItemsChanged(tx *database.Tx, orderID uint) {
	tx.BeforeCommit(recomputeKey(orderID), func(gtx *gorm.DB) error {
		return s.Recompute(gtx, orderID)
	})
}

// Recompute sets the bill total to the sum of the current prices of the
// order's items. It must run inside the transaction that changed the items.
func (s *Service) Recompute(tx *gorm.DB, orderID uint) error {
	var bill models.Bill
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return status.Errorf(codes.Internal, "order %d has no bill", orderID)
		}
		return status.Errorf(codes.Internal, "failed to load bill: %v", err)
	}

	if bill.IsPaid && s.policy.FreezePaidBills {
		return nil
	}

	var itemIDs []uint
	if err := tx.Model(&models.OrderMenuItem{}).
		Where("order_id = ?", orderID).
		Pluck("menu_item_id", &itemIDs).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to load order items: %v", err)
	}

	prices, err := loadPrices(tx, itemIDs)
	if err != nil {
		return err
	}

	total, err := ComputeTotal(itemIDs, prices)
	if err != nil {
		return err
	}

	if err := tx.Model(&bill).Update("total_amount", total).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to update bill total: %v", err)
	}
	return nil
}

func loadPrices(tx *gorm.DB, itemIDs []uint) (map[uint]decimal.Decimal, error) {
	prices := make(map[uint]decimal.Decimal, len(itemIDs))
	if len(itemIDs) == 0 {
		return prices, nil
	}

	var items []models.MenuItem
	if err := tx.Select("id", "price").Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load menu prices: %v", err)
	}
	for _, item := range items {
		prices[item.ID] = item.Price
	}
	return prices, nil
}

// Pay marks the bill as paid. Paying an already paid bill is a no-op.
func (s *Service) Pay(ctx context.Context, billID uint) (*models.Bill, error) {
	var bill models.Bill

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := tx.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&bill, billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "bill %d not found", billID)
			}
			return status.Errorf(codes.Internal, "failed to load bill: %v", err)
		}

		if bill.IsPaid {
			return nil
		}

		now := time.Now()
		if err := tx.DB.Model(&bill).Updates(map[string]interface{}{
			"is_paid": true,
			"paid_at": now,
		}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to mark bill paid: %v", err)
		}
		bill.IsPaid = true
		bill.PaidAt = &now

		paid := bill
		tx.AfterCommit(func() {
			logrus.WithFields(logrus.Fields{"bill_id": paid.ID, "order_id": paid.OrderID}).Info("bill paid")
			s.cache.Notify(cache.Event{
				EventType:   cache.EventBillPaid,
				BillID:      paid.ID,
				OrderID:     paid.OrderID,
				TotalAmount: paid.TotalAmount.StringFixed(2),
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *Service) GetBill(ctx context.Context, billID uint) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).First(&bill, billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "bill %d not found", billID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load bill: %v", err)
	}
	return &bill, nil
}

func (s *Service) GetBillByOrder(ctx context.Context, orderID uint) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "bill for order %d not found", orderID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load bill: %v", err)
	}
	return &bill, nil
}

type ListBillsFilter struct {
	IsPaid   *bool
	Page     int
	PageSize int
}

func (s *Service) ListBills(ctx context.Context, f ListBillsFilter) ([]models.Bill, pagination.Meta, error) {
	page, size := pagination.Normalize(f.Page, f.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Bill{})
	if f.IsPaid != nil {
		query = query.Where("is_paid = ?", *f.IsPaid)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to count bills: %v", err)
	}

	bills := []models.Bill{}
	if err := query.Order("id DESC").Scopes(pagination.Scope(page, size)).Find(&bills).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to list bills: %v", err)
	}
	return bills, pagination.NewMeta(page, size, total), nil
}
