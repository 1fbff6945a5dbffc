package staff

import (
	"regexp"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 4
	maxPasswordLength = 50
)

var staffNumberPattern = regexp.MustCompile(`^\d{4}$`)

// Staff is a pharmacy employee allowed to scan. Rows are provisioned by user
// management; this service only reads them and stamps LastLoginAt.
type Staff struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	// "No absen": the 4-digit attendance number printed on staff badges.
	StaffNumber  string      `gorm:"column:staff_number;type:varchar(4);uniqueIndex;not null"`
	Name         string      `gorm:"column:name;type:varchar(150);not null"`
	Role         domain.Role `gorm:"column:role;type:varchar(30);not null;index"`
	PasswordHash string      `gorm:"column:password_hash;type:varchar(255);not null"`

	IsActive    bool       `gorm:"column:is_active;default:true;index"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func (Staff) TableName() string {
	return "auth.staff"
}

func (s *Staff) Claims() *domain.Claims {
	return &domain.Claims{
		StaffID:     s.ID,
		StaffNumber: s.StaffNumber,
		Name:        s.Name,
		Role:        s.Role,
	}
}

// Profile is the part of a staff row that is safe to hand back to clients.
type Profile struct {
	ID          uuid.UUID   `json:"id"`
	StaffNumber string      `json:"no_absen"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
}

func (s *Staff) Profile() Profile {
	return Profile{ID: s.ID, StaffNumber: s.StaffNumber, Name: s.Name, Role: s.Role}
}

type LoginCommand struct {
	StaffNumber string
	Password    string
	IP          string
}

// Normalize trims both fields and reports which ones are malformed.
func (c *LoginCommand) Normalize() []string {
	c.StaffNumber = strings.TrimSpace(c.StaffNumber)
	c.Password = strings.TrimSpace(c.Password)

	var errs []string
	if c.StaffNumber == "" {
		errs = append(errs, "no_absen is required")
	} else if !staffNumberPattern.MatchString(c.StaffNumber) {
		errs = append(errs, "no_absen must be 4 digits")
	}
	if c.Password == "" {
		errs = append(errs, "password is required")
	} else if n := len(c.Password); n < minPasswordLength || n > maxPasswordLength {
		errs = append(errs, "password must be between 4 and 50 characters")
	}
	return errs
}
