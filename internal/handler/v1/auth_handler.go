package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/service"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Login(ctx context.Context, cmd staff.LoginCommand) (*service.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, claims *domain.Claims, meta service.RequestMeta)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	StaffNumber string `json:"no_absen"`
	Password    string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), staff.LoginCommand{
		StaffNumber: req.StaffNumber,
		Password:    req.Password,
		IP:          c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), claimsFrom(c), requestMeta(c))
	c.JSON(http.StatusOK, APIResponse[any]{Success: true, Message: "logged out"})
}
