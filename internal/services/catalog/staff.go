package catalog

import (
	"context"
	"strings"

	"restro-system/internal/database"
	"restro-system/internal/database/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type WaiterInput struct {
	Name string
	Age  int
}

func (s *Service) CreateWaiter(ctx context.Context, in WaiterInput) (*models.Waiter, error) {
	waiter := models.Waiter{Name: strings.TrimSpace(in.Name), Age: in.Age}
	if err := waiter.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.db.WithContext(ctx).Create(&waiter).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create waiter: %v", err)
	}
	return &waiter, nil
}

func (s *Service) UpdateWaiter(ctx context.Context, id uint, in WaiterInput) (*models.Waiter, error) {
	var waiter models.Waiter

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := tx.DB.First(&waiter, id).Error; err != nil {
			return notFoundOr(err, "waiter", id)
		}
		waiter.Name = strings.TrimSpace(in.Name)
		waiter.Age = in.Age
		if err := waiter.Validate(); err != nil {
			return invalid(err)
		}
		if err := tx.DB.Model(&waiter).Updates(map[string]interface{}{
			"name": waiter.Name,
			"age":  waiter.Age,
		}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update waiter: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &waiter, nil
}

func (s *Service) GetWaiter(ctx context.Context, id uint) (*models.Waiter, error) {
	var waiter models.Waiter
	if err := s.db.WithContext(ctx).First(&waiter, id).Error; err != nil {
		return nil, notFoundOr(err, "waiter", id)
	}
	return &waiter, nil
}

func (s *Service) ListWaiters(ctx context.Context) ([]models.Waiter, error) {
	waiters := []models.Waiter{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&waiters).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list waiters: %v", err)
	}
	return waiters, nil
}

// DeleteWaiter is refused while orders still reference the waiter.
func (s *Service) DeleteWaiter(ctx context.Context, id uint) error {
	return database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		var waiter models.Waiter
		if err := tx.DB.First(&waiter, id).Error; err != nil {
			return notFoundOr(err, "waiter", id)
		}
		var orders int64
		if err := tx.DB.Model(&models.Order{}).Where("waiter_id = ?", id).Count(&orders).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to check orders: %v", err)
		}
		if orders > 0 {
			return status.Errorf(codes.FailedPrecondition, "waiter %q still serves %d order(s)", waiter.Name, orders)
		}
		if err := tx.DB.Delete(&waiter).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to delete waiter: %v", err)
		}
		return nil
	})
}

type ReceptionInput struct {
	Name          string
	ContactNumber string
}

func (s *Service) CreateReception(ctx context.Context, in ReceptionInput) (*models.Reception, error) {
	reception := models.Reception{Name: strings.TrimSpace(in.Name), ContactNumber: strings.TrimSpace(in.ContactNumber)}
	if err := reception.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.db.WithContext(ctx).Create(&reception).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create reception: %v", err)
	}
	return &reception, nil
}

func (s *Service) UpdateReception(ctx context.Context, id uint, in ReceptionInput) (*models.Reception, error) {
	var reception models.Reception

	err := database.WithTx(ctx, s.db, func(tx *database.Tx) error {
		if err := tx.DB.First(&reception, id).Error; err != nil {
			return notFoundOr(err, "reception", id)
		}
		reception.Name = strings.TrimSpace(in.Name)
		reception.ContactNumber = strings.TrimSpace(in.ContactNumber)
		if err := reception.Validate(); err != nil {
			return invalid(err)
		}
		if err := tx.DB.Model(&reception).Updates(map[string]interface{}{
			"name":           reception.Name,
			"contact_number": reception.ContactNumber,
		}).Error; err != nil {
			return status.Errorf(codes.Internal, "failed to update reception: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reception, nil
}

func (s *Service) GetReception(ctx context.Context, id uint) (*models.Reception, error) {
	var reception models.Reception
	if err := s.db.WithContext(ctx).First(&reception, id).Error; err != nil {
		return nil, notFoundOr(err, "reception", id)
	}
	return &reception, nil
}

func (s *Service) ListReceptions(ctx context.Context) ([]models.Reception, error) {
	receptions := []models.Reception{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&receptions).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list receptions: %v", err)
	}
	return receptions, nil
}

func (s *Service) DeleteReception(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Reception{}, id)
	if res.Error != nil {
		return status.Errorf(codes.Internal, "failed to delete reception: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return status.Errorf(codes.NotFound, "reception %d not found", id)
	}
	return nil
}
