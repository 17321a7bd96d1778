package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"restro-system/internal/database"
	"restro-system/internal/database/dbtest"
	"restro-system/internal/database/models"
	"restro-system/internal/services/billing"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	bills  *billing.Service
	table  models.Table
	waiter models.Waiter
	pasta  models.MenuItem
	salad  models.MenuItem
	cake   models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	bills := billing.NewService(db, nil, billing.Policy{})

	return &fixture{
		db:     db,
		svc:    NewService(db, bills, nil),
		bills:  bills,
		table:  dbtest.SeedTable(t, db, 7, 4, models.TableAvailable),
		waiter: dbtest.SeedWaiter(t, db, "Marta"),
		pasta:  dbtest.SeedMenuItem(t, db, "Pasta", "12.40"),
		salad:  dbtest.SeedMenuItem(t, db, "Salad", "6.95"),
		cake:   dbtest.SeedMenuItem(t, db, "Cake", "5.65"),
	}
}

func (f *fixture) create(t *testing.T, items ...models.MenuItem) *models.Order {
	t.Helper()
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		ItemIDs:  ids,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func assertTotal(t *testing.T, order *models.Order, want string) {
	t.Helper()
	if order.Bill == nil {
		t.Fatal("order has no bill")
	}
	if !order.Bill.TotalAmount.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("bill total = %s, want %s", order.Bill.TotalAmount.StringFixed(2), want)
	}
}

func TestCreateOrderCreatesBill(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, f.pasta, f.salad, f.pasta)

	if len(order.MenuItems) != 2 {
		t.Fatalf("menu items = %d, want 2 (duplicates collapse)", len(order.MenuItems))
	}
	if order.Version != 1 {
		t.Fatalf("version = %d, want 1", order.Version)
	}
	assertTotal(t, order, "19.35")
	if order.Bill.IsPaid {
		t.Fatal("new bill is already paid")
	}
}

func TestCreateOrderWithoutItems(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)
	assertTotal(t, order, "0.00")
}

func TestCreateOrderValidatesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateOrderInput
	}{
		{"unknown table", CreateOrderInput{TableID: 999, WaiterID: f.waiter.ID}},
		{"unknown waiter", CreateOrderInput{TableID: f.table.ID, WaiterID: 999}},
		{"unknown item", CreateOrderInput{TableID: f.table.ID, WaiterID: f.waiter.ID, ItemIDs: []uint{f.pasta.ID, 999}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(ctx, tt.in)
			if status.Code(err) != codes.NotFound {
				t.Fatalf("expected NotFound, got %v", err)
			}
		})
	}

	var orders, bills int64
	f.db.Model(&models.Order{}).Count(&orders)
	f.db.Model(&models.Bill{}).Count(&bills)
	if orders != 0 || bills != 0 {
		t.Fatalf("failed creates left %d orders and %d bills", orders, bills)
	}
}

func TestItemMutationsKeepBillInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, f.pasta)

	order, err := f.svc.AddOrderItems(ctx, order.ID, []uint{f.salad.ID, f.cake.ID, f.pasta.ID}, nil)
	if err != nil {
		t.Fatalf("AddOrderItems: %v", err)
	}
	assertTotal(t, order, "25.00")

	order, err = f.svc.RemoveOrderItem(ctx, order.ID, f.pasta.ID, nil)
	if err != nil {
		t.Fatalf("RemoveOrderItem: %v", err)
	}
	assertTotal(t, order, "12.60")

	order, err = f.svc.UpdateOrderItems(ctx, order.ID, []uint{f.cake.ID}, nil)
	if err != nil {
		t.Fatalf("UpdateOrderItems: %v", err)
	}
	assertTotal(t, order, "5.65")

	order, err = f.svc.UpdateOrderItems(ctx, order.ID, nil, nil)
	if err != nil {
		t.Fatalf("UpdateOrderItems to empty: %v", err)
	}
	assertTotal(t, order, "0.00")
	if len(order.MenuItems) != 0 {
		t.Fatalf("menu items = %d, want 0", len(order.MenuItems))
	}
	if order.Version != 5 {
		t.Fatalf("version = %d, want 5", order.Version)
	}
}

func TestRemoveAbsentItemIsNoop(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, f.pasta)

	got, err := f.svc.RemoveOrderItem(context.Background(), order.ID, f.cake.ID, nil)
	if err != nil {
		t.Fatalf("RemoveOrderItem: %v", err)
	}
	assertTotal(t, got, "12.40")
}

func TestUnknownItemLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, f.pasta)

	_, err := f.svc.UpdateOrderItems(context.Background(), order.ID, []uint{f.salad.ID, 999}, nil)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	got, err := f.svc.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(got.MenuItems) != 1 || got.MenuItems[0].ID != f.pasta.ID {
		t.Fatalf("items changed after failed update: %+v", got.MenuItems)
	}
	assertTotal(t, got, "12.40")
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1", got.Version)
	}
}

func TestStaleVersionIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, f.pasta)

	current := order.Version
	if _, err := f.svc.AddOrderItems(ctx, order.ID, []uint{f.salad.ID}, &current); err != nil {
		t.Fatalf("AddOrderItems with current version: %v", err)
	}

	_, err := f.svc.AddOrderItems(ctx, order.ID, []uint{f.cake.ID}, &current)
	if status.Code(err) != codes.Aborted {
		t.Fatalf("expected Aborted for stale version, got %v", err)
	}

	got, _ := f.svc.GetOrder(ctx, order.ID)
	assertTotal(t, got, "19.35")
}

func TestConcurrentAddsAllReachTheBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	const writers = 10
	items := make([]models.MenuItem, writers)
	for i := range items {
		items[i] = dbtest.SeedMenuItem(t, f.db, fmt.Sprintf("Tapa %d", i), "1.10")
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, writers)
	)
	for _, item := range items {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			<-start
			for {
				_, err := f.svc.AddOrderItems(ctx, order.ID, []uint{id}, nil)
				if status.Code(err) == codes.Aborted {
					continue
				}
				errs <- err
				return
			}
		}(item.ID)
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("AddOrderItems: %v", err)
		}
	}

	got, err := f.svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(got.MenuItems) != writers {
		t.Fatalf("menu items = %d, want %d", len(got.MenuItems), writers)
	}
	if got.Version != writers+1 {
		t.Fatalf("version = %d, want %d", got.Version, writers+1)
	}
	assertTotal(t, got, "11.00")
}

func TestBumpVersionDetectsInterleavedWriter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, f.pasta)

	if err := f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("version", 2).Error; err != nil {
		t.Fatalf("advance version: %v", err)
	}

	stale := &models.Order{ID: order.ID, Version: 1}
	err := database.WithTx(ctx, f.db, func(tx *database.Tx) error {
		return bumpVersion(tx.DB, stale)
	})
	if status.Code(err) != codes.Aborted {
		t.Fatalf("expected Aborted, got %v", err)
	}

	got, _ := f.svc.GetOrder(ctx, order.ID)
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
}

func TestBillTotalOverflowIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caviar := dbtest.SeedMenuItem(t, f.db, "Caviar", "99999999.99")
	truffle := dbtest.SeedMenuItem(t, f.db, "Truffle", "99999999.99")

	if _, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		ItemIDs:  []uint{caviar.ID, truffle.ID},
	}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("create over the limit: expected InvalidArgument, got %v", err)
	}
	var orders int64
	f.db.Model(&models.Order{}).Count(&orders)
	if orders != 0 {
		t.Fatalf("rejected create left %d order(s)", orders)
	}

	order := f.create(t, caviar)
	if _, err := f.svc.AddOrderItems(ctx, order.ID, []uint{truffle.ID}, nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("add over the limit: expected InvalidArgument, got %v", err)
	}

	got, _ := f.svc.GetOrder(ctx, order.ID)
	if len(got.MenuItems) != 1 || got.Version != 1 {
		t.Fatalf("rejected add changed the order: items=%d version=%d", len(got.MenuItems), got.Version)
	}
	assertTotal(t, got, "99999999.99")
}

func TestPriceChangeReachesBillOnNextItemChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, f.pasta)

	if err := f.db.Model(&models.MenuItem{}).Where("id = ?", f.pasta.ID).
		Update("price", decimal.RequireFromString("15.00")).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}

	got, _ := f.svc.GetOrder(ctx, order.ID)
	assertTotal(t, got, "12.40")

	got, err := f.svc.AddOrderItems(ctx, order.ID, []uint{f.salad.ID}, nil)
	if err != nil {
		t.Fatalf("AddOrderItems: %v", err)
	}
	assertTotal(t, got, "21.95")
}

func TestUpdateOrderReassignsWaiter(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, f.pasta)
	other := dbtest.SeedWaiter(t, f.db, "Joana")

	got, err := f.svc.UpdateOrder(context.Background(), order.ID, UpdateOrderInput{WaiterID: &other.ID})
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if got.WaiterID != other.ID {
		t.Fatalf("waiter = %d, want %d", got.WaiterID, other.ID)
	}
	assertTotal(t, got, "12.40")

	missing := uint(999)
	if _, err := f.svc.UpdateOrder(context.Background(), order.ID, UpdateOrderInput{TableID: &missing}); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unknown table, got %v", err)
	}
}

func TestDeleteOrderRemovesBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, f.pasta, f.cake)

	if err := f.svc.DeleteOrder(ctx, order.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	var bills, items int64
	f.db.Model(&models.Bill{}).Where("order_id = ?", order.ID).Count(&bills)
	f.db.Model(&models.OrderMenuItem{}).Where("order_id = ?", order.ID).Count(&items)
	if bills != 0 || items != 0 {
		t.Fatalf("left %d bills and %d item rows behind", bills, items)
	}

	if _, err := f.svc.GetOrder(ctx, order.ID); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if err := f.svc.DeleteOrder(ctx, order.ID); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound on second delete, got %v", err)
	}
}

func TestListOrdersSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.pasta)

	otherTable := dbtest.SeedTable(t, f.db, 12, 2, models.TableAvailable)
	otherWaiter := dbtest.SeedWaiter(t, f.db, "Bruno")
	if _, err := f.svc.CreateOrder(ctx, CreateOrderInput{TableID: otherTable.ID, WaiterID: otherWaiter.ID}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	tests := []struct {
		search string
		want   int
	}{
		{"", 2},
		{"7", 1},
		{"12", 1},
		{"mar", 1},
		{"bru", 1},
		{"nobody", 0},
	}

	for _, tt := range tests {
		t.Run("search="+tt.search, func(t *testing.T) {
			orders, meta, err := f.svc.ListOrders(ctx, ListOrdersFilter{Search: tt.search})
			if err != nil {
				t.Fatalf("ListOrders: %v", err)
			}
			if len(orders) != tt.want || meta.TotalCount != int64(tt.want) {
				t.Fatalf("got %d orders (total %d), want %d", len(orders), meta.TotalCount, tt.want)
			}
		})
	}
}
