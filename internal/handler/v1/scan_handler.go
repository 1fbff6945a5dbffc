package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/service"
	"github.com/gin-gonic/gin"
)

type ScanApplier interface {
	ApplyScan(ctx context.Context, cmd scan.Command, meta service.RequestMeta) (*scan.Result, error)
}

type ScanHandler struct {
	scans ScanApplier
}

func NewScanHandler(scans ScanApplier) *ScanHandler {
	return &ScanHandler{scans: scans}
}

type scanRequest struct {
	Code string `json:"code"`
	Mode string `json:"mode"`
	User string `json:"user"`
}

type scanResponse struct {
	Success bool        `json:"success"`
	Status  scan.Status `json:"status"`
	Code    string      `json:"code"`
	Mode    scan.Mode   `json:"mode"`
	User    string      `json:"user"`
	At      time.Time   `json:"at"`
}

// Apply handles POST /api/v1/scans.
func (h *ScanHandler) Apply(c *gin.Context) {
	var req scanRequest
	if !bindJSON(c, &req) {
		return
	}

	claims := claimsFrom(c)
	if user := strings.TrimSpace(req.User); user != "" && user != claims.StaffNumber {
		respondServiceError(c, service.ErrForbidden)
		return
	}

	mode, err := scan.ParseMode(req.Mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	res, err := h.scans.ApplyScan(c.Request.Context(), scan.Command{
		Code:  req.Code,
		Mode:  mode,
		Actor: claims.StaffNumber,
	}, requestMeta(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scanResponse{
		Success: true,
		Status:  res.Status,
		Code:    res.Code,
		Mode:    res.Mode,
		User:    res.Actor,
		At:      res.At,
	})
}
