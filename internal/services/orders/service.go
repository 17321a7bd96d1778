package orders

import (
	"context"
	"errors"
	"sort"

	"restro-system/internal/cache"
	"restro-system/internal/database"
	"restro-system/internal/database/models"
	"restro-system/internal/services/billing"
	"restro-system/internal/services/pagination"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db      *gorm.DB
	billing *billing.Service
	cache   *cache.Cache
}

func NewService(db *gorm.DB, billingService *billing.Service, c *cache.Cache) *Service {
	return &Service{db: db, billing: billingService, cache: c}
}

type CreateOrderInput struct {
	TableID  uint
	WaiterID uint
	ItemIDs  []uint
}

// CreateOrder persists the order with its item set and its bill in a single
// transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	var order models.Order

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := ensureExists(tx.DB, &models.Table{}, in.TableID, "table"); err != nil {
			return err
		}
		if err := ensureExists(tx.DB, &models.Waiter{}, in.WaiterID, "waiter"); err != nil {
			return err
		}

		itemIDs, err := resolveItems(tx.DB, in.ItemIDs)
		if err != nil {
			return err
		}

		order = models.Order{TableID: in.TableID, WaiterID: in.WaiterID, Version: 1}
		if err := tx.DB.Create(&order).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to create order: %v", err)
		}

		if err := insertItems(tx.DB, order.ID, itemIDs); err != nil {
			return err
		}

		if _, err := s.billing.OnOrderCreated(tx, order.ID); err != nil {
			return err
		}

		s.afterOrderCommit(tx, cache.EventOrderCreated, order.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, order.ID)
}

// UpdateOrderItems replaces the item set of an order. When expectedVersion
// is given it must match the stored version.
func (s *Service) UpdateOrderItems(ctx context.Context, orderID uint, itemIDs []uint, expectedVersion *int) (*models.Order, error) {
	return s.mutateItems(ctx, orderID, expectedVersion, func(tx *gorm.DB, current map[uint]struct{}) error {
		wanted, err := resolveItems(tx, itemIDs)
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderMenuItem{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to clear order items: %v", err)
		}
		return insertItems(tx, orderID, wanted)
	})
}

// AddOrderItems adds items to the set. Items already present are ignored.
func (s *Service) AddOrderItems(ctx context.Context, orderID uint, itemIDs []uint, expectedVersion *int) (*models.Order, error) {
	return s.mutateItems(ctx, orderID, expectedVersion, func(tx *gorm.DB, current map[uint]struct{}) error {
		wanted, err := resolveItems(tx, itemIDs)
		if err != nil {
			return err
		}
		var missing []uint
		for _, id := range wanted {
			if _, ok := current[id]; !ok {
				missing = append(missing, id)
			}
		}
		return insertItems(tx, orderID, missing)
	})
}

// RemoveOrderItem removes one item from the set. Removing an item the order
// does not contain is a no-op.
func (s *Service) RemoveOrderItem(ctx context.Context, orderID, itemID uint, expectedVersion *int) (*models.Order, error) {
	return s.mutateItems(ctx, orderID, expectedVersion, func(tx *gorm.DB, current map[uint]struct{}) error {
		if _, ok := current[itemID]; !ok {
			return nil
		}
		if err := tx.Where("order_id = ? AND menu_item_id = ?", orderID, itemID).
			Delete(&models.OrderMenuItem{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to remove order item: %v", err)
		}
		return nil
	})
}

// mutateItems locks the order, applies change to its item set, bumps the
// version and schedules the bill recompute, all in one transaction.
func (s *Service) mutateItems(
	ctx context.Context,
	orderID uint,
	expectedVersion *int,
	change func(tx *gorm.DB, current map[uint]struct{}) error,
) (*models.Order, error) {
	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		order, err := lockOrder(tx.DB, orderID)
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != order.Version {
			return status.Errorf(codes.Aborted, "order %d was modified concurrently (version %d, expected %d)", orderID, order.Version, *expectedVersion)
		}

		current, err := currentItems(tx.DB, orderID)
		if err != nil {
			return err
		}
		if err := change(tx.DB, current); err != nil {
			return err
		}

		if err := bumpVersion(tx.DB, order); err != nil {
			return err
		}

		s.billing.OnOrderItemsChanged(tx, orderID)
		s.afterOrderCommit(tx, cache.EventOrderUpdated, orderID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

type UpdateOrderInput struct {
	TableID  *uint
	WaiterID *uint
}

// UpdateOrder reassigns the table or the waiter of an order. The item set
// and the bill are untouched.
func (s *Service) UpdateOrder(ctx context.Context, orderID uint, in UpdateOrderInput) (*models.Order, error) {
	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		order, err := lockOrder(tx.DB, orderID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.TableID != nil && *in.TableID != order.TableID {
			if err := ensureExists(tx.DB, &models.Table{}, *in.TableID, "table"); err != nil {
				return err
			}
			updates["table_id"] = *in.TableID
		}
		if in.WaiterID != nil && *in.WaiterID != order.WaiterID {
			if err := ensureExists(tx.DB, &models.Waiter{}, *in.WaiterID, "waiter"); err != nil {
				return err
			}
			updates["waiter_id"] = *in.WaiterID
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.DB.Model(order).Updates(updates).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update order: %v", err)
		}
		s.afterOrderCommit(tx, cache.EventOrderUpdated, orderID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// DeleteOrder removes the order together with its item set and its bill.
func (s *Service) DeleteOrder(ctx context.Context, orderID uint) error {
	return database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if _, err := lockOrder(tx.DB, orderID); err != nil {
			return err
		}
		if err := tx.DB.Where("order_id = ?", orderID).Delete(&models.OrderMenuItem{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete order items: %v", err)
		}
		if err := tx.DB.Where("order_id = ?", orderID).Delete(&models.Bill{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete bill: %v", err)
		}
		if err := tx.DB.Delete(&models.Order{}, orderID).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete order: %v", err)
		}
		s.afterOrderCommit(tx, cache.EventOrderDeleted, orderID)
		return nil
	})
}

func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Waiter").
		Preload("MenuItems", func(db *gorm.DB) *gorm.DB { return db.Order("menu_items.id") }).
		Preload("Bill").
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "order %d not found", orderID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load order: %v", err)
	}
	return &order, nil
}

type ListOrdersFilter struct {
	// Search matches the table number exactly or the waiter name partially.
	Search   string
	TableID  *uint
	WaiterID *uint
	Page     int
	PageSize int
}

func (s *Service) ListOrders(ctx context.Context, f ListOrdersFilter) ([]models.Order, pagination.Meta, error) {
	page, size := pagination.Normalize(f.Page, f.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Joins("JOIN tables ON tables.id = orders.table_id").
		Joins("JOIN waiters ON waiters.id = orders.waiter_id")
	if f.Search != "" {
		query = query.Where("CAST(tables.number AS TEXT) = ? OR LOWER(waiters.name) LIKE LOWER(?)", f.Search, "%"+f.Search+"%")
	}
	if f.TableID != nil {
		query = query.Where("orders.table_id = ?", *f.TableID)
	}
	if f.WaiterID != nil {
		query = query.Where("orders.waiter_id = ?", *f.WaiterID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to count orders: %v", err)
	}

	orders := []models.Order{}
	if err := query.
		Preload("Table").
		Preload("Waiter").
		Preload("MenuItems").
		Preload("Bill").
		Order("orders.id DESC").
		Scopes(pagination.Scope(page, size)).
		Find(&orders).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to list orders: %v", err)
	}

	return orders, pagination.NewMeta(page, size, total), nil
}

func (s *Service) afterOrderCommit(tx *database.Tx, eventType string, orderID uint) {
	tx.AfterCommit(func() {
		logrus.WithFields(logrus.Fields{"order_id": orderID, "event": eventType}).Info("order committed")
		s.cache.Notify(cache.Event{EventType: eventType, OrderID: orderID})
	})
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "order %d not found", orderID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load order: %v", err)
	}
	return &order, nil
}

// bumpVersion is a compare-and-swap on the order version. It fails if
// another writer got in between the read and this update.
func bumpVersion(tx *gorm.DB, order *models.Order) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{"version": order.Version + 1})
	if res.Error != nil {
		return status.Errorf(codes.Internal, "failed to update order version: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return status.Errorf(codes.Aborted, "order %d was modified concurrently", order.ID)
	}
	order.Version++
	return nil
}

func currentItems(tx *gorm.DB, orderID uint) (map[uint]struct{}, error) {
	var ids []uint
	if err := tx.Model(&models.OrderMenuItem{}).Where("order_id = ?", orderID).Pluck("menu_item_id", &ids).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load order items: %v", err)
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// resolveItems de-duplicates ids and checks every one names a menu item.
func resolveItems(tx *gorm.DB, ids []uint) ([]uint, error) {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return unique, nil
	}

	var found []uint
	if err := tx.Model(&models.MenuItem{}).Where("id IN ?", unique).Pluck("id", &found).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load menu items: %v", err)
	}
	if len(found) != len(unique) {
		known := make(map[uint]struct{}, len(found))
		for _, id := range found {
			known[id] = struct{}{}
		}
		for _, id := range unique {
			if _, ok := known[id]; !ok {
				return nil, status.Errorf(codes.NotFound, "menu item %d not found", id)
			}
		}
	}

	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return unique, nil
}

func insertItems(tx *gorm.DB, orderID uint, itemIDs []uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	rows := make([]models.OrderMenuItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		rows = append(rows, models.OrderMenuItem{OrderID: orderID, MenuItemID: id})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to save order items: %v", err)
	}
	return nil
}

func ensureExists(tx *gorm.DB, model interface{}, id uint, what string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to look up %s: %v", what, err)
	}
	if count == 0 {
		return status.Errorf(codes.NotFound, "%s %d not found", what, id)
	}
	return nil
}
