package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TableStatus string

const (
	TableAvailable TableStatus = "Available"
	TableReserved  TableStatus = "Reserved"
	TableOccupied  TableStatus = "Occupied"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableReserved, TableOccupied:
		return true
	}
	return false
}

type Table struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Number    int         `gorm:"uniqueIndex;not null" json:"number"`
	Capacity  int         `gorm:"not null" json:"capacity"`
	Status    TableStatus `gorm:"type:varchar(16);not null;default:'Available'" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	Name       string          `gorm:"type:varchar(100);not null"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CategoryID uint            `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
}

type Waiter struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Age       int       `gorm:"not null" json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Reception struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	ContactNumber string    `gorm:"type:varchar(15);not null" json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Order owns its item set (order_menu_items) and its Bill. Version is bumped
// on every item-set mutation.
type Order struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	TableID   uint `gorm:"index;not null"`
	WaiterID  uint `gorm:"index;not null"`
	Version   int  `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Table     *Table     `gorm:"foreignKey:TableID"`
	Waiter    *Waiter    `gorm:"foreignKey:WaiterID"`
	MenuItems []MenuItem `gorm:"many2many:order_menu_items"`
	Bill      *Bill      `gorm:"foreignKey:OrderID"`
}

type OrderMenuItem struct {
	OrderID    uint `gorm:"primaryKey"`
	MenuItemID uint `gorm:"primaryKey"`
	CreatedAt  time.Time
}

type Bill struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	OrderID     uint            `gorm:"uniqueIndex;not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsPaid      bool            `gorm:"not null;default:false"`
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Reservation struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TableID         uint      `gorm:"index;not null" json:"table_id"`
	CustomerName    string    `gorm:"type:varchar(100);not null" json:"customer_name"`
	ReservationTime time.Time `gorm:"not null" json:"reservation_time"`
	PartySize       int       `gorm:"not null;default:0" json:"party_size"`
	IsConfirmed     bool      `gorm:"not null;default:false" json:"is_confirmed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Table *Table `gorm:"foreignKey:TableID" json:"table,omitempty"`
}

// All returns every model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Table{},
		&Category{},
		&MenuItem{},
		&Waiter{},
		&Reception{},
		&Order{},
		&OrderMenuItem{},
		&Bill{},
		&Reservation{},
	}
}
