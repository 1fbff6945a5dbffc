package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    Mode
		wantErr error
	}{
		{raw: "validation", want: ModeValidation},
		{raw: " Dispensing ", want: ModeDispensing},
		{raw: "", wantErr: ErrInvalidMode},
		{raw: "refill", wantErr: ErrInvalidMode},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseMode(tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	code, ok := NormalizeCode("  RX-1001\n")
	assert.True(t, ok)
	assert.Equal(t, "RX-1001", code)

	_, ok = NormalizeCode("   ")
	assert.False(t, ok)

	long := make([]byte, MaxCodeLength+1)
	for i := range long {
		long[i] = 'A'
	}
	_, ok = NormalizeCode(string(long))
	assert.False(t, ok)
}

func TestRecordApply_Validation(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := &Record{Code: "RX-1"}

	status, err := rec.Apply(ModeValidation, "0001", at)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, status)
	assert.Equal(t, at, *rec.ValidatedAt)
	assert.Equal(t, "0001", *rec.ValidatedBy)
	assert.Equal(t, StatusValidated, rec.Status())

	_, err = rec.Apply(ModeValidation, "0002", at.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyValidated)
	assert.Equal(t, "0001", *rec.ValidatedBy, "rejected transition must not touch the record")
	assert.Equal(t, at, *rec.ValidatedAt)
}

func TestRecordApply_DispensingRequiresValidation(t *testing.T) {
	rec := &Record{Code: "RX-2"}

	_, err := rec.Apply(ModeDispensing, "0003", time.Now())
	assert.ErrorIs(t, err, ErrValidationRequired)
	assert.Nil(t, rec.DispensedAt)
	assert.Nil(t, rec.DispensedBy)
	assert.Equal(t, StatusPending, rec.Status())
}

func TestRecordApply_DispensingOnce(t *testing.T) {
	validated := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := &Record{Code: "RX-3", ValidatedAt: &validated, ValidatedBy: strPtr("0001")}

	status, err := rec.Apply(ModeDispensing, "0003", validated.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusDispensed, status)
	assert.Equal(t, "0003", *rec.DispensedBy)

	_, err = rec.Apply(ModeDispensing, "0001", validated.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyDispensed)
	assert.Equal(t, "0003", *rec.DispensedBy)
}

func TestRecordApply_LegacyDispensedBlocksRedispense(t *testing.T) {
	validated := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := &Record{Code: "RX-4", ValidatedAt: &validated, LegacyDispensedTime: "09:15:00"}

	assert.Equal(t, StatusDispensed, rec.Status())
	_, err := rec.Apply(ModeDispensing, "0001", time.Now())
	assert.ErrorIs(t, err, ErrAlreadyDispensed)
	assert.Nil(t, rec.DispensedAt)
}

func TestRecordApply_UnknownMode(t *testing.T) {
	rec := &Record{Code: "RX-5"}
	_, err := rec.Apply(Mode("refill"), "0001", time.Now())
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, StatusPending, rec.Status())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"not found", fmt.Errorf("lookup: %w", ErrRecordNotFound), KindNotFound},
		{"invalid mode", ErrInvalidMode, KindInvalidMode},
		{"already validated", ErrAlreadyValidated, KindAlreadyValidated},
		{"validation required", ErrValidationRequired, KindValidationRequired},
		{"already dispensed", ErrAlreadyDispensed, KindAlreadyDispensed},
		{"storage", &StorageError{Kind: StorageTimeout, Op: "transition", Err: context.DeadlineExceeded}, KindStorage},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestStorageError(t *testing.T) {
	err := fmt.Errorf("applying scan: %w", &StorageError{Kind: StorageConflict, Op: "transition", Err: errors.New("deadlock detected")})

	assert.Equal(t, StorageConflict, StorageKindOf(err))
	assert.False(t, IsRejection(err))
	assert.Contains(t, err.Error(), "storage conflict during transition")
	assert.Equal(t, StorageErrorKind(""), StorageKindOf(ErrAlreadyDispensed))
	assert.True(t, IsRejection(ErrAlreadyDispensed))
}
