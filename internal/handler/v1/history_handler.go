package v1

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"github.com/gin-gonic/gin"
)

type HistoryLister interface {
	ListByActor(ctx context.Context, actor string, limit int) ([]scan.HistoryEntry, error)
}

type HistoryHandler struct {
	history HistoryLister
}

func NewHistoryHandler(history HistoryLister) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List handles GET /api/v1/history for the authenticated staff member.
func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.history.ListByActor(c.Request.Context(), claimsFrom(c).StaffNumber, parseQueryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if entries == nil {
		entries = []scan.HistoryEntry{}
	}
	respondOK(c, entries)
}
