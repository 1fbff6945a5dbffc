package staff

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByStaffNumber returns ErrStaffNotFound for unknown or soft-deleted staff.
	GetByStaffNumber(ctx context.Context, staffNumber string) (*Staff, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)

	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
