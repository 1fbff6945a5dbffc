package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/staff"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var _ staff.Repository = (*StaffRepository)(nil)

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) GetByStaffNumber(ctx context.Context, staffNumber string) (*staff.Staff, error) {
	var s staff.Staff
	err := r.db.WithContext(ctx).
		Where("staff_number = ? AND deleted_at IS NULL", staffNumber).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, staff.ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding staff by number: %w", err)
	}
	return &s, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*staff.Staff, error) {
	var s staff.Staff
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, staff.ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding staff by id: %w", err)
	}
	return &s, nil
}

func (r *StaffRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&staff.Staff{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}
