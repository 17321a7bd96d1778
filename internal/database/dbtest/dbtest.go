// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"restro-system/internal/database"
	"restro-system/internal/database/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// New returns a migrated sqlite database private to t.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.NewConnection(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.MigrateRestaurantDB(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func SeedTable(t *testing.T, db *gorm.DB, number, capacity int, status models.TableStatus) models.Table {
	t.Helper()
	table := models.Table{Number: number, Capacity: capacity, Status: status}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("seed table %d: %v", number, err)
	}
	return table
}

func SeedWaiter(t *testing.T, db *gorm.DB, name string) models.Waiter {
	t.Helper()
	waiter := models.Waiter{Name: name, Age: 30}
	if err := db.Create(&waiter).Error; err != nil {
		t.Fatalf("seed waiter %s: %v", name, err)
	}
	return waiter
}

func SeedCategory(t *testing.T, db *gorm.DB, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return category
}

// SeedMenuItem creates a menu item in a fresh category named after the item.
func SeedMenuItem(t *testing.T, db *gorm.DB, name, price string) models.MenuItem {
	t.Helper()
	category := SeedCategory(t, db, name+" category")
	item := models.MenuItem{Name: name, Price: decimal.RequireFromString(price), CategoryID: category.ID}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed menu item %s: %v", name, err)
	}
	return item
}
