package catalog

import (
	"context"
	"testing"
	"time"

	"restro-system/internal/database/dbtest"
	"restro-system/internal/database/models"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	return NewService(db, nil), db
}

func TestCreateTable(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	table, err := svc.CreateTable(ctx, TableInput{Number: 5, Capacity: 4})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if table.Status != models.TableAvailable {
		t.Fatalf("status = %s, want Available", table.Status)
	}

	tests := []struct {
		name string
		in   TableInput
		want codes.Code
	}{
		{"duplicate number", TableInput{Number: 5, Capacity: 2}, codes.AlreadyExists},
		{"zero capacity", TableInput{Number: 6, Capacity: 0}, codes.InvalidArgument},
		{"zero number", TableInput{Number: 0, Capacity: 2}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTable(ctx, tt.in); status.Code(err) != tt.want {
				t.Fatalf("code = %v (%v), want %v", status.Code(err), err, tt.want)
			}
		})
	}
}

func TestUpdateTableKeepsStatus(t *testing.T) {
	svc, db := newService(t)
	table := dbtest.SeedTable(t, db, 1, 2, models.TableReserved)
	dbtest.SeedTable(t, db, 2, 2, models.TableAvailable)

	got, err := svc.UpdateTable(context.Background(), table.ID, TableInput{Number: 1, Capacity: 8})
	if err != nil {
		t.Fatalf("UpdateTable: %v", err)
	}
	if got.Capacity != 8 || got.Status != models.TableReserved {
		t.Fatalf("got capacity=%d status=%s", got.Capacity, got.Status)
	}

	if _, err := svc.UpdateTable(context.Background(), table.ID, TableInput{Number: 2, Capacity: 8}); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestDeleteTableGuards(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	table := dbtest.SeedTable(t, db, 1, 4, models.TableAvailable)
	waiter := dbtest.SeedWaiter(t, db, "Rui")

	order := models.Order{TableID: table.ID, WaiterID: waiter.ID, Version: 1}
	db.Create(&order)
	bill := models.Bill{OrderID: order.ID, TotalAmount: decimal.Zero}
	db.Create(&bill)

	if err := svc.DeleteTable(ctx, table.ID); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("unpaid bill: expected FailedPrecondition, got %v", err)
	}

	db.Model(&bill).Update("is_paid", true)
	upcoming := models.Reservation{TableID: table.ID, CustomerName: "Ana", ReservationTime: time.Now().Add(24 * time.Hour)}
	db.Create(&upcoming)

	if err := svc.DeleteTable(ctx, table.ID); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("upcoming reservation: expected FailedPrecondition, got %v", err)
	}

	db.Model(&upcoming).Update("reservation_time", time.Now().Add(-24*time.Hour))
	if err := svc.DeleteTable(ctx, table.ID); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}

	var orders, bills, reservations int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.Bill{}).Count(&bills)
	db.Model(&models.Reservation{}).Count(&reservations)
	if orders+bills+reservations != 0 {
		t.Fatalf("left orders=%d bills=%d reservations=%d", orders, bills, reservations)
	}

	if err := svc.DeleteTable(ctx, table.ID); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMenuItemLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Mains")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	item, err := svc.CreateMenuItem(ctx, MenuItemInput{Name: "Risotto", Price: "14.90", CategoryID: category.ID})
	if err != nil {
		t.Fatalf("CreateMenuItem: %v", err)
	}
	if !item.Price.Equal(decimal.RequireFromString("14.90")) || item.Category == nil || item.Category.Name != "Mains" {
		t.Fatalf("unexpected item: %+v", item)
	}

	item, err = svc.UpdateMenuItem(ctx, item.ID, MenuItemInput{Name: "Risotto", Price: "16.00", CategoryID: category.ID})
	if err != nil {
		t.Fatalf("UpdateMenuItem: %v", err)
	}
	if !item.Price.Equal(decimal.RequireFromString("16")) {
		t.Fatalf("price = %s, want 16.00", item.Price.StringFixed(2))
	}

	if err := svc.DeleteCategory(ctx, category.ID); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition deleting a used category, got %v", err)
	}
	if err := svc.DeleteMenuItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteMenuItem: %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
}

func TestCreateMenuItemValidation(t *testing.T) {
	svc, db := newService(t)
	category := dbtest.SeedCategory(t, db, "Desserts")

	tests := []struct {
		name string
		in   MenuItemInput
		want codes.Code
	}{
		{"bad price", MenuItemInput{Name: "Tart", Price: "abc", CategoryID: category.ID}, codes.InvalidArgument},
		{"zero price", MenuItemInput{Name: "Tart", Price: "0", CategoryID: category.ID}, codes.InvalidArgument},
		{"three decimals", MenuItemInput{Name: "Tart", Price: "1.999", CategoryID: category.ID}, codes.InvalidArgument},
		{"empty name", MenuItemInput{Name: " ", Price: "3.00", CategoryID: category.ID}, codes.InvalidArgument},
		{"unknown category", MenuItemInput{Name: "Tart", Price: "3.00", CategoryID: 999}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateMenuItem(context.Background(), tt.in); status.Code(err) != tt.want {
				t.Fatalf("code = %v (%v), want %v", status.Code(err), err, tt.want)
			}
		})
	}
}

func TestDeleteMenuItemInUse(t *testing.T) {
	svc, db := newService(t)
	item := dbtest.SeedMenuItem(t, db, "Bread", "2.00")
	db.Create(&models.OrderMenuItem{OrderID: 1, MenuItemID: item.ID})

	if err := svc.DeleteMenuItem(context.Background(), item.ID); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestListMenuItemsPagination(t *testing.T) {
	svc, db := newService(t)
	drinks := dbtest.SeedCategory(t, db, "Drinks")
	for i := 0; i < 12; i++ {
		db.Create(&models.MenuItem{Name: "Juice", Price: decimal.RequireFromString("3.00"), CategoryID: drinks.ID})
	}
	dbtest.SeedMenuItem(t, db, "Burger", "9.00")

	page, err := svc.ListMenuItems(context.Background(), ListMenuItemsFilter{})
	if err != nil {
		t.Fatalf("ListMenuItems: %v", err)
	}
	if len(page.Items) != 10 || page.Meta.TotalCount != 13 || page.Meta.TotalPages != 2 {
		t.Fatalf("default page: items=%d meta=%+v", len(page.Items), page.Meta)
	}

	page, _ = svc.ListMenuItems(context.Background(), ListMenuItemsFilter{CategoryID: drinks.ID, Page: 2, PageSize: 5})
	if len(page.Items) != 5 || page.Meta.TotalCount != 12 {
		t.Fatalf("category page 2: items=%d meta=%+v", len(page.Items), page.Meta)
	}

	page, _ = svc.ListMenuItems(context.Background(), ListMenuItemsFilter{Search: "burg"})
	if len(page.Items) != 1 || page.Items[0].Name != "Burger" {
		t.Fatalf("search: %+v", page.Items)
	}
}

func TestStaffCRUD(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	waiter, err := svc.CreateWaiter(ctx, WaiterInput{Name: "Tiago", Age: 27})
	if err != nil {
		t.Fatalf("CreateWaiter: %v", err)
	}
	if _, err := svc.CreateWaiter(ctx, WaiterInput{Name: "Tiago", Age: -1}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for negative age, got %v", err)
	}

	waiter, err = svc.UpdateWaiter(ctx, waiter.ID, WaiterInput{Name: "Tiago S.", Age: 28})
	if err != nil || waiter.Age != 28 {
		t.Fatalf("UpdateWaiter: %+v %v", waiter, err)
	}

	table := dbtest.SeedTable(t, db, 1, 2, models.TableAvailable)
	db.Create(&models.Order{TableID: table.ID, WaiterID: waiter.ID, Version: 1})
	if err := svc.DeleteWaiter(ctx, waiter.ID); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}

	reception, err := svc.CreateReception(ctx, ReceptionInput{Name: "Front", ContactNumber: "+351912345678"})
	if err != nil {
		t.Fatalf("CreateReception: %v", err)
	}
	if _, err := svc.UpdateReception(ctx, reception.ID, ReceptionInput{Name: "Front", ContactNumber: "1234567890123456"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if err := svc.DeleteReception(ctx, reception.ID); err != nil {
		t.Fatalf("DeleteReception: %v", err)
	}
	if _, err := svc.GetReception(ctx, reception.ID); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
