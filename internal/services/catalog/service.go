package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"restro-system/internal/cache"
	"restro-system/internal/database"
	"restro-system/internal/database/models"
	"restro-system/internal/services/pagination"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Service is the entity store for the reference data of the restaurant:
// tables, menu categories, menu items and staff.
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewService(db *gorm.DB, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

func invalid(err error) error {
	return status.Errorf(codes.InvalidArgument, "%v", err)
}

func notFoundOr(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return status.Errorf(codes.NotFound, "%s %d not found", what, id)
	}
	return status.Errorf(codes.Internal, "failed to load %s: %v", what, err)
}

func (s *Service) invalidateTables(tx *database.Tx) {
	tx.AfterCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		s.cache.InvalidateTables(ctx)
	})
}

func (s *Service) invalidateMenu(tx *database.Tx) {
	tx.AfterCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		s.cache.InvalidateMenu(ctx)
	})
}

// -- Tables --

type TableInput struct {
	Number   int
	Capacity int
}

// CreateTable adds a table. New tables always start Available.
func (s *Service) CreateTable(ctx context.Context, in TableInput) (*models.Table, error) {
	table := models.Table{Number: in.Number, Capacity: in.Capacity, Status: models.TableAvailable}
	if err := table.Validate(); err != nil {
		return nil, invalid(err)
	}

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := ensureUniqueNumber(tx.DB, in.Number, 0); err != nil {
			return err
		}
		if err := tx.DB.Create(&table).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to create table: %v", err)
		}
		s.invalidateTables(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// UpdateTable changes number and capacity. Status is not editable here.
func (s *Service) UpdateTable(ctx context.Context, id uint, in TableInput) (*models.Table, error) {
	var table models.Table

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := tx.DB.First(&table, id).Error; err != nil {
			return notFoundOr(err, "table", id)
		}
		table.Number = in.Number
		table.Capacity = in.Capacity
		if err := table.Validate(); err != nil {
			return invalid(err)
		}
		if err := ensureUniqueNumber(tx.DB, in.Number, id); err != nil {
			return err
		}
		if err := tx.DB.Model(&table).Updates(map[string]interface{}{
			"number":   in.Number,
			"capacity": in.Capacity,
		}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update table: %v", err)
		}
		s.invalidateTables(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func ensureUniqueNumber(tx *gorm.DB, number int, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Table{}).Where("number = ? AND id <> ?", number, exceptID).Count(&count).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to check table number: %v", err)
	}
	if count > 0 {
		return status.Errorf(codes.AlreadyExists, "table number %d already exists", number)
	}
	return nil
}

func (s *Service) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, notFoundOr(err, "table", id)
	}
	return &table, nil
}

type ListTablesFilter struct {
	Status      *models.TableStatus
	MinCapacity int
	Page        int
	PageSize    int
}

func (s *Service) ListTables(ctx context.Context, f ListTablesFilter) ([]models.Table, pagination.Meta, error) {
	page, size := pagination.Normalize(f.Page, f.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Table{})
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.MinCapacity > 0 {
		query = query.Where("capacity >= ?", f.MinCapacity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to count tables: %v", err)
	}

	tables := []models.Table{}
	if err := query.Order("number ASC").Scopes(pagination.Scope(page, size)).Find(&tables).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to list tables: %v", err)
	}
	return tables, pagination.NewMeta(page, size, total), nil
}

// DeleteTable removes a table with its order history and reservations. It is
// refused while the table has an unpaid bill or an upcoming reservation.
func (s *Service) DeleteTable(ctx context.Context, id uint) error {
	return database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var table models.Table
		if err := tx.DB.First(&table, id).Error; err != nil {
			return notFoundOr(err, "table", id)
		}

		var unpaid int64
		if err := tx.DB.Model(&models.Bill{}).
			Joins("JOIN orders ON orders.id = bills.order_id").
			Where("orders.table_id = ? AND bills.is_paid = ?", id, false).
			Count(&unpaid).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to check open bills: %v", err)
		}
		if unpaid > 0 {
			return status.Errorf(codes.FailedPrecondition, "table %d has %d unpaid bill(s)", table.Number, unpaid)
		}

		var upcoming int64
		if err := tx.DB.Model(&models.Reservation{}).
			Where("table_id = ? AND reservation_time > ?", id, time.Now()).
			Count(&upcoming).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to check reservations: %v", err)
		}
		if upcoming > 0 {
			return status.Errorf(codes.FailedPrecondition, "table %d has %d upcoming reservation(s)", table.Number, upcoming)
		}

		orderIDs := tx.DB.Model(&models.Order{}).Select("id").Where("table_id = ?", id)
		if err := tx.DB.Where("order_id IN (?)", orderIDs).Delete(&models.OrderMenuItem{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete order items: %v", err)
		}
		if err := tx.DB.Where("order_id IN (?)", orderIDs).Delete(&models.Bill{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete bills: %v", err)
		}
		if err := tx.DB.Where("table_id = ?", id).Delete(&models.Order{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete orders: %v", err)
		}
		if err := tx.DB.Where("table_id = ?", id).Delete(&models.Reservation{}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete reservations: %v", err)
		}
		if err := tx.DB.Delete(&table).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete table: %v", err)
		}
		s.invalidateTables(tx)
		return nil
	})
}

// -- Categories --

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	category := models.Category{Name: strings.TrimSpace(name)}
	if err := category.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create category: %v", err)
	}
	return &category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	var category models.Category

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := tx.DB.First(&category, id).Error; err != nil {
			return notFoundOr(err, "category", id)
		}
		category.Name = strings.TrimSpace(name)
		if err := category.Validate(); err != nil {
			return invalid(err)
		}
		if err := tx.DB.Model(&category).Update("name", category.Name).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update category: %v", err)
		}
		s.invalidateMenu(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFoundOr(err, "category", id)
	}
	return &category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list categories: %v", err)
	}
	return categories, nil
}

// DeleteCategory is refused while menu items still belong to the category.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var category models.Category
		if err := tx.DB.First(&category, id).Error; err != nil {
			return notFoundOr(err, "category", id)
		}
		var items int64
		if err := tx.DB.Model(&models.MenuItem{}).Where("category_id = ?", id).Count(&items).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to check menu items: %v", err)
		}
		if items > 0 {
			return status.Errorf(codes.FailedPrecondition, "category %q still has %d menu item(s)", category.Name, items)
		}
		if err := tx.DB.Delete(&category).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete category: %v", err)
		}
		return nil
	})
}

// -- Menu items --

type MenuItemInput struct {
	Name       string
	Price      string
	CategoryID uint
}

func (in MenuItemInput) toModel() (models.MenuItem, error) {
	item := models.MenuItem{Name: strings.TrimSpace(in.Name), CategoryID: in.CategoryID}
	price, err := parsePrice(in.Price)
	if err != nil {
		return item, err
	}
	item.Price = price
	if err := item.Validate(); err != nil {
		return item, invalid(err)
	}
	return item, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	item, err := in.toModel()
	if err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := ensureCategory(tx.DB, in.CategoryID); err != nil {
			return err
		}
		if err := tx.DB.Create(&item).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to create menu item: %v", err)
		}
		s.invalidateMenu(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMenuItem(ctx, item.ID)
}

// UpdateMenuItem edits a catalog entry. Existing bills keep their totals; an
// order picks up the new price the next time its items change.
func (s *Service) UpdateMenuItem(ctx context.Context, id uint, in MenuItemInput) (*models.MenuItem, error) {
	updated, err := in.toModel()
	if err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var item models.MenuItem
		if err := tx.DB.First(&item, id).Error; err != nil {
			return notFoundOr(err, "menu item", id)
		}
		if err := ensureCategory(tx.DB, in.CategoryID); err != nil {
			return err
		}
		if err := tx.DB.Model(&item).Updates(map[string]interface{}{
			"name":        updated.Name,
			"price":       updated.Price,
			"category_id": updated.CategoryID,
		}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update menu item: %v", err)
		}
		s.invalidateMenu(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMenuItem(ctx, id)
}

func (s *Service) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).Preload("Category").First(&item, id).Error; err != nil {
		return nil, notFoundOr(err, "menu item", id)
	}
	return &item, nil
}

type ListMenuItemsFilter struct {
	CategoryID uint
	Search     string
	Page       int
	PageSize   int
}

type MenuPage struct {
	Items []models.MenuItem `json:"items"`
	Meta  pagination.Meta   `json:"meta"`
}

func (s *Service) ListMenuItems(ctx context.Context, f ListMenuItemsFilter) (*MenuPage, error) {
	page, size := pagination.Normalize(f.Page, f.PageSize)
	search := strings.TrimSpace(f.Search)

	key := cache.MenuKey(f.CategoryID, search, page, size)
	var cached MenuPage
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}
	gen := s.cache.MenuGeneration(ctx)

	query := s.db.WithContext(ctx).Model(&models.MenuItem{})
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to count menu items: %v", err)
	}

	items := []models.MenuItem{}
	if err := query.Preload("Category").Order("id ASC").Scopes(pagination.Scope(page, size)).Find(&items).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list menu items: %v", err)
	}

	result := &MenuPage{Items: items, Meta: pagination.NewMeta(page, size, total)}
	s.cache.SetJSONAt(ctx, key, result, gen)
	return result, nil
}

// DeleteMenuItem is refused while any order still contains the item.
func (s *Service) DeleteMenuItem(ctx context.Context, id uint) error {
	return database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var item models.MenuItem
		if err := tx.DB.First(&item, id).Error; err != nil {
			return notFoundOr(err, "menu item", id)
		}
		var refs int64
		if err := tx.DB.Model(&models.OrderMenuItem{}).Where("menu_item_id = ?", id).Count(&refs).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to check orders: %v", err)
		}
		if refs > 0 {
			return status.Errorf(codes.FailedPrecondition, "menu item %q is used by %d order(s)", item.Name, refs)
		}
		if err := tx.DB.Delete(&item).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete menu item: %v", err)
		}
		s.invalidateMenu(tx)
		return nil
	})
}

func ensureCategory(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to look up category: %v", err)
	}
	if count == 0 {
		return status.Errorf(codes.NotFound, "category %d not found", id)
	}
	return nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid price %q", raw)
	}
	return price, nil
}
