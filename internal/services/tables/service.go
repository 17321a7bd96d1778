package tables

import (
	"context"
	"errors"
	"time"

	"restro-system/internal/cache"
	"restro-system/internal/database"
	"restro-system/internal/database/models"
	"restro-system/internal/services/pagination"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns every table status transition. Reservations move a table
// between Available and Reserved; seating moves it to and from Occupied.
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewService(db *gorm.DB, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

type CreateReservationInput struct {
	TableID         uint
	CustomerName    string
	ReservationTime time.Time
	// PartySize is optional; zero skips the capacity check.
	PartySize int
}

func (s *Service) CreateReservation(ctx context.Context, in CreateReservationInput) (*models.Reservation, error) {
	reservation := models.Reservation{
		TableID:         in.TableID,
		CustomerName:    in.CustomerName,
		ReservationTime: in.ReservationTime,
		PartySize:       in.PartySize,
	}
	if err := reservation.Validate(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		table, err := lockTable(tx.DB, in.TableID)
		if err != nil {
			return err
		}
		if in.PartySize > 0 && table.Capacity < in.PartySize {
			return status.Errorf(codes.InvalidArgument, "table %d seats %d, cannot host %d", table.Number, table.Capacity, in.PartySize)
		}
		if table.Status != models.TableAvailable {
			return status.Errorf(codes.InvalidArgument, "table %d is not available (status %s)", table.Number, table.Status)
		}

		if err := tx.DB.Create(&reservation).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to create reservation: %v", err)
		}

		id := reservation.ID
		tx.AfterCommit(func() {
			s.cache.Notify(cache.Event{EventType: cache.EventReservationCreated, ReservationID: id, TableID: in.TableID})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ConfirmReservation marks the reservation confirmed and the table Reserved.
// Confirming an already confirmed reservation changes nothing.
func (s *Service) ConfirmReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var err error
		reservation, err = lockReservation(tx.DB, reservationID)
		if err != nil {
			return err
		}
		if reservation.IsConfirmed {
			return nil
		}

		table, err := lockTable(tx.DB, reservation.TableID)
		if err != nil {
			return err
		}
		if table.Status != models.TableAvailable {
			return status.Errorf(codes.FailedPrecondition, "table %d is %s, cannot confirm reservation %d", table.Number, table.Status, reservationID)
		}

		if err := tx.DB.Model(reservation).Update("is_confirmed", true).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to confirm reservation: %v", err)
		}
		if err := s.setTableStatus(tx, table, models.TableReserved); err != nil {
			return err
		}

		s.afterReservationCommit(tx, cache.EventReservationConfirmed, reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, reservationID)
}

// CancelReservation clears the confirmation and frees a Reserved table.
// Cancelling an unconfirmed reservation changes nothing. A table that has
// been seated in the meantime stays Occupied.
func (s *Service) CancelReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		reservation, err := lockReservation(tx.DB, reservationID)
		if err != nil {
			return err
		}
		if !reservation.IsConfirmed {
			return nil
		}

		table, err := lockTable(tx.DB, reservation.TableID)
		if err != nil {
			return err
		}

		if err := tx.DB.Model(reservation).Update("is_confirmed", false).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to cancel reservation: %v", err)
		}
		if table.Status == models.TableReserved {
			if err := s.setTableStatus(tx, table, models.TableAvailable); err != nil {
				return err
			}
		}

		s.afterReservationCommit(tx, cache.EventReservationCancelled, reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, reservationID)
}

// SeatTable records that guests sat down. Seating an occupied table is a no-op.
func (s *Service) SeatTable(ctx context.Context, tableID uint) (*models.Table, error) {
	return s.transitionTable(ctx, tableID, models.TableOccupied, func(t *models.Table) error {
		return nil
	})
}

// ReleaseTable frees an occupied table. A Reserved table must be released by
// cancelling its reservation instead.
func (s *Service) ReleaseTable(ctx context.Context, tableID uint) (*models.Table, error) {
	return s.transitionTable(ctx, tableID, models.TableAvailable, func(t *models.Table) error {
		if t.Status == models.TableReserved {
			return status.Errorf(codes.FailedPrecondition, "table %d is reserved; cancel the reservation instead", t.Number)
		}
		return nil
	})
}

func (s *Service) transitionTable(ctx context.Context, tableID uint, to models.TableStatus, guard func(*models.Table) error) (*models.Table, error) {
	var table *models.Table

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var err error
		table, err = lockTable(tx.DB, tableID)
		if err != nil {
			return err
		}
		if table.Status == to {
			return nil
		}
		if err := guard(table); err != nil {
			return err
		}
		return s.setTableStatus(tx, table, to)
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// ListAvailableTables returns the Available tables seating at least
// minCapacity guests, smallest first. No match yields an empty slice.
func (s *Service) ListAvailableTables(ctx context.Context, minCapacity int) ([]models.Table, error) {
	if minCapacity < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "capacity must not be negative")
	}

	key := cache.AvailableTablesKey(minCapacity)
	var tables []models.Table
	if s.cache.GetJSON(ctx, key, &tables) {
		return tables, nil
	}
	gen := s.cache.TablesGeneration(ctx)

	tables = []models.Table{}
	if err := s.db.WithContext(ctx).
		Where("status = ? AND capacity >= ?", models.TableAvailable, minCapacity).
		Order("capacity ASC, number ASC").
		Find(&tables).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list available tables: %v", err)
	}

	s.cache.SetJSONAt(ctx, key, tables, gen)
	return tables, nil
}

func (s *Service) GetReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := s.db.WithContext(ctx).Preload("Table").First(&reservation, reservationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "reservation %d not found", reservationID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load reservation: %v", err)
	}
	return &reservation, nil
}

type ListReservationsFilter struct {
	TableID     *uint
	IsConfirmed *bool
	Page        int
	PageSize    int
}

func (s *Service) ListReservations(ctx context.Context, f ListReservationsFilter) ([]models.Reservation, pagination.Meta, error) {
	page, size := pagination.Normalize(f.Page, f.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Reservation{})
	if f.TableID != nil {
		query = query.Where("table_id = ?", *f.TableID)
	}
	if f.IsConfirmed != nil {
		query = query.Where("is_confirmed = ?", *f.IsConfirmed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to count reservations: %v", err)
	}

	reservations := []models.Reservation{}
	if err := query.Preload("Table").
		Order("reservation_time ASC").
		Scopes(pagination.Scope(page, size)).
		Find(&reservations).Error; err != nil {
		return nil, pagination.Meta{}, status.Errorf(codes.Internal, "failed to list reservations: %v", err)
	}
	return reservations, pagination.NewMeta(page, size, total), nil
}

type UpdateReservationInput struct {
	CustomerName    *string
	ReservationTime *time.Time
}

// UpdateReservation edits the descriptive fields only. Table and confirmation
// changes go through the confirm and cancel transitions.
func (s *Service) UpdateReservation(ctx context.Context, reservationID uint, in UpdateReservationInput) (*models.Reservation, error) {
	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		reservation, err := lockReservation(tx.DB, reservationID)
		if err != nil {
			return err
		}
		if in.CustomerName != nil {
			reservation.CustomerName = *in.CustomerName
		}
		if in.ReservationTime != nil {
			reservation.ReservationTime = *in.ReservationTime
		}
		if err := reservation.Validate(); err != nil {
			return status.Errorf(codes.InvalidArgument, "%v", err)
		}
		if err := tx.DB.Model(reservation).Updates(map[string]interface{}{
			"customer_name":    reservation.CustomerName,
			"reservation_time": reservation.ReservationTime,
		}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update reservation: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, reservationID)
}

// DeleteReservation removes a reservation, cancelling it first when it is
// confirmed so its table does not stay Reserved.
func (s *Service) DeleteReservation(ctx context.Context, reservationID uint) error {
	if _, err := s.CancelReservation(ctx, reservationID); err != nil {
		return err
	}
	return database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		res := tx.DB.Delete(&models.Reservation{}, reservationID)
		if res.Error != nil {
			return status.Errorf(codes.Internal, "failed to delete reservation: %v", res.Error)
		}
		if res.RowsAffected == 0 {
			return status.Errorf(codes.NotFound, "reservation %d not found", reservationID)
		}
		return nil
	})
}

func (s *Service) afterReservationCommit(tx *database.Tx, eventType string, r *models.Reservation) {
	id, tableID := r.ID, r.TableID
	tx.AfterCommit(func() {
		logrus.WithFields(logrus.Fields{"reservation_id": id, "table_id": tableID, "event": eventType}).Info("reservation committed")
		s.cache.Notify(cache.Event{EventType: eventType, ReservationID: id, TableID: tableID})
	})
}

// setTableStatus is the only place a table status is written.
func (s *Service) setTableStatus(tx *database.Tx, table *models.Table, to models.TableStatus) error {
	from := table.Status
	if err := tx.DB.Model(table).Update("status", to).Error; err != nil {
		return status.Errorf(codes.Internal, "failed to update table status: %v", err)
	}
	table.Status = to

	id := table.ID
	tx.AfterCommit(func() {
		logrus.WithFields(logrus.Fields{"table_id": id, "from": from, "to": to}).Info("table status changed")

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		s.cache.InvalidateTables(ctx)
		s.cache.Notify(cache.Event{EventType: cache.EventTableStatusChanged, TableID: id, TableStatus: string(to)})
	})
	return nil
}

func lockTable(tx *gorm.DB, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "table %d not found", tableID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load table: %v", err)
	}
	return &table, nil
}

func lockReservation(tx *gorm.DB, reservationID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reservation, reservationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "reservation %d not found", reservationID)
		}
		return nil, status.Errorf(codes.Internal, "failed to load reservation: %v", err)
	}
	return &reservation, nil
}
