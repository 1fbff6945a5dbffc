package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleNurse      Role = "nurse"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleNurse:
		return true
	}
	return false
}

type AuditAction string

const (
	ActionValidate    AuditAction = "validate"
	ActionDispense    AuditAction = "dispense"
	ActionLogin       AuditAction = "login"
	ActionLoginFailed AuditAction = "login_failed"
	ActionLogout      AuditAction = "logout"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	Actor     string `gorm:"column:actor;type:varchar(32);not null;index"`
	IPAddress string `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(64);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Outcome   string `gorm:"column:outcome;type:varchar(40)"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

// Claims identify the staff member behind a request. StaffNumber is the
// actor recorded on scan transitions.
type Claims struct {
	StaffID     uuid.UUID `json:"sub"`
	StaffNumber string    `json:"staff_number"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
}
