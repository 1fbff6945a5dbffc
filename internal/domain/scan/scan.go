package scan

import (
	"strings"
	"time"
)

// Mode is the transition a scan requests. Only ParseMode turns wire input into a Mode.
type Mode string

const (
	ModeValidation Mode = "validation"
	ModeDispensing Mode = "dispensing"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeValidation, ModeDispensing:
		return true
	}
	return false
}

func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	if !m.IsValid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

// Lifecycle of a package record:
//
//	pending → validated → dispensed
//
// No transition moves backward.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusValidated Status = "Validated"
	StatusDispensed Status = "Dispensed"
)

// MaxCodeLength bounds the barcode accepted before any lookup.
const MaxCodeLength = 64

// Record is a medication package row. Rows are created by the prescription
// system; this service only stamps the two transitions.
type Record struct {
	Code      string    `gorm:"column:code;type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ValidatedAt *time.Time `gorm:"column:validated_at;index"`
	ValidatedBy *string    `gorm:"column:validated_by;type:varchar(32);index"`

	DispensedAt *time.Time `gorm:"column:dispensed_at;index"`
	DispensedBy *string    `gorm:"column:dispensed_by;type:varchar(32);index"`

	// Migrated rows carry the dispensing time as HH:MM:SS only. Read-only.
	LegacyDispensedTime string `gorm:"column:legacy_dispensed_time;type:varchar(32);not null;default:''"`
}

func (Record) TableName() string {
	return "pharmacy.scan_records"
}

func (r *Record) IsValidated() bool {
	return r.ValidatedAt != nil
}

func (r *Record) IsDispensed() bool {
	return r.DispensedAt != nil || strings.TrimSpace(r.LegacyDispensedTime) != ""
}

func (r *Record) Status() Status {
	switch {
	case r.IsDispensed():
		return StatusDispensed
	case r.IsValidated():
		return StatusValidated
	}
	return StatusPending
}

// Apply checks mode against the current state and stamps the record.
// On error the record is left untouched.
func (r *Record) Apply(mode Mode, actor string, at time.Time) (Status, error) {
	switch mode {
	case ModeValidation:
		if r.IsValidated() {
			return "", ErrAlreadyValidated
		}
		r.ValidatedAt = &at
		r.ValidatedBy = &actor
		return StatusValidated, nil

	case ModeDispensing:
		if !r.IsValidated() {
			return "", ErrValidationRequired
		}
		if r.IsDispensed() {
			return "", ErrAlreadyDispensed
		}
		r.DispensedAt = &at
		r.DispensedBy = &actor
		return StatusDispensed, nil
	}
	return "", ErrInvalidMode
}

// NormalizeCode trims the scanned value. The second return is false when the
// result is unusable as a key.
func NormalizeCode(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if code == "" || len(code) > MaxCodeLength {
		return code, false
	}
	return code, true
}

type Command struct {
	Code  string
	Mode  Mode
	Actor string
}

type Result struct {
	Code   string    `json:"code"`
	Mode   Mode      `json:"mode"`
	Status Status    `json:"status"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}
