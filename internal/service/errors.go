package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// RequestMeta carries the transport details services stamp on audit entries.
type RequestMeta struct {
	IP        string
	RequestID string
}

type AuditEntry struct {
	Actor        string
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Outcome      string
}
