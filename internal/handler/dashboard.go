package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/handler/dto"
	"github.com/empireos/entitlement-api/internal/service"
)

type DashboardHandler struct {
	licenses *service.LicenseService
	logger   *zap.Logger
}

func NewDashboardHandler(licenses *service.LicenseService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		licenses: licenses,
		logger:   logger.Named("DashboardHandler"),
	}
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.licenses.GetDashboardSummary(c.Request.Context(), time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.DashboardSummaryResponse{
		TotalLicenses: summary.TotalLicenses,
		StatusCounts:  summary.StatusCounts,
		ExpiringSoon:  make([]dto.ExpiringLicenseInfo, 0, len(summary.ExpiringSoon)),
	}
	for _, lic := range summary.ExpiringSoon {
		if !lic.ExpiresAt.Valid {
			continue
		}
		resp.ExpiringSoon = append(resp.ExpiringSoon, dto.ExpiringLicenseInfo{
			LicenseKey: lic.LicenseKey,
			OrgName:    lic.OrgName,
			Tier:       lic.LicenseType,
			ExpiresAt:  lic.ExpiresAt.Time,
		})
	}

	c.JSON(http.StatusOK, resp)
}
