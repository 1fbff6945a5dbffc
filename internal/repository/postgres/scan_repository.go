package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ scan.Repository = (*ScanRepository)(nil)

// transitionColumns are the only columns a transition may write.
var transitionColumns = []string{"validated_at", "validated_by", "dispensed_at", "dispensed_by", "updated_at"}

type ScanRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewScanRepository(db *gorm.DB, lockTimeout time.Duration) *ScanRepository {
	return &ScanRepository{db: db, lockTimeout: lockTimeout}
}

func (r *ScanRepository) GetByCode(ctx context.Context, code string) (*scan.Record, error) {
	var rec scan.Record
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, scan.ErrRecordNotFound
	}
	if err != nil {
		return nil, classify("get", err)
	}
	return &rec, nil
}

// Transition runs fn against the row while holding SELECT ... FOR UPDATE on it.
// A second caller for the same code blocks on the lock until the first commits
// or rolls back, then sees the committed state.
func (r *ScanRepository) Transition(ctx context.Context, code string, fn scan.TransitionFunc) (*scan.Record, error) {
	var rec scan.Record

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 {
			// set_config(..., true) is scoped to this transaction like SET LOCAL,
			// but unlike SET it accepts a bind parameter.
			ms := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
			if err := tx.Exec("SELECT set_config('lock_timeout', ?, true)", ms).Error; err != nil {
				return classify("lock_timeout", err)
			}
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scan.ErrRecordNotFound
		}
		if err != nil {
			return classify("lock", err)
		}

		if err := fn(&rec); err != nil {
			return err
		}

		res := tx.Model(&rec).Select(transitionColumns).Updates(&rec)
		if res.Error != nil {
			return classify("update", res.Error)
		}
		if res.RowsAffected != 1 {
			return &scan.StorageError{
				Kind: scan.StorageConflict,
				Op:   "update",
				Err:  fmt.Errorf("expected 1 row, updated %d", res.RowsAffected),
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify("transition", err)
	}
	return &rec, nil
}

func (r *ScanRepository) ListByActor(ctx context.Context, actor string, limit int) ([]*scan.Record, error) {
	var records []*scan.Record
	err := r.db.WithContext(ctx).
		Where("validated_by = ? OR dispensed_by = ?", actor, actor).
		// rank by the actor's own transitions; the other one may belong to someone else
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "GREATEST(CASE WHEN validated_by = ? THEN validated_at END, CASE WHEN dispensed_by = ? THEN dispensed_at END) DESC NULLS LAST",
			Vars:               []any{actor, actor},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, classify("list", err)
	}
	return records, nil
}
