package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	ctxKeyRequestID = "request_id"
	ctxKeyClaims    = "claims"
)

// Error kinds the API reports beyond the scan.Kind* values.
const (
	kindValidation         = "ValidationError"
	kindUnauthorized       = "Unauthorized"
	kindTokenExpired       = "TokenExpired"
	kindForbidden          = "Forbidden"
	kindInvalidCredentials = "InvalidCredentials"
	kindAccountInactive    = "AccountInactive"
	kindTooManyAttempts    = "TooManyAttempts"
	kindRateLimited        = "RateLimited"
	kindInternal           = "Unknown"
)

type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success     bool     `json:"success"`
	ErrorKind   string   `json:"errorKind"`
	Message     string   `json:"message"`
	StorageKind string   `json:"storageKind,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{ErrorKind: kind, Message: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			ErrorKind: kindValidation,
			Message:   "validation failed",
			Fields:    validErr.Fields,
		})
		return
	}

	switch kind := scan.KindOf(err); kind {
	case scan.KindNotFound:
		respondError(c, http.StatusNotFound, string(kind), scan.ErrRecordNotFound.Error())
		return
	case scan.KindInvalidMode:
		respondError(c, http.StatusBadRequest, string(kind), scan.ErrInvalidMode.Error())
		return
	case scan.KindAlreadyValidated, scan.KindAlreadyDispensed, scan.KindValidationRequired:
		respondError(c, http.StatusConflict, string(kind), err.Error())
		return
	case scan.KindStorage:
		// Storage internals stay in the logs.
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			ErrorKind:   string(kind),
			Message:     "the scan could not be recorded right now, please try again",
			StorageKind: string(scan.StorageKindOf(err)),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, kindForbidden, "access denied")

	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, kindInvalidCredentials, "invalid credentials")

	case errors.Is(err, service.ErrAccountInactive):
		respondError(c, http.StatusForbidden, kindAccountInactive, err.Error())

	case errors.Is(err, service.ErrTooManyAttempts):
		respondError(c, http.StatusTooManyRequests, kindTooManyAttempts, err.Error())

	default:
		respondError(c, http.StatusInternalServerError, kindInternal, "something went wrong, please try again")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			ErrorKind: kindValidation,
			Message:   "invalid request: " + err.Error(),
		})
		return false
	}

	return true
}

// parseQueryInt returns 0 when key is absent or not a positive integer.
func parseQueryInt(c *gin.Context, key string) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		RequestID: c.GetString(ctxKeyRequestID),
	}
}

// claimsFrom is only valid behind the Authenticate middleware.
func claimsFrom(c *gin.Context) *domain.Claims {
	claims, _ := c.MustGet(ctxKeyClaims).(*domain.Claims)
	return claims
}
