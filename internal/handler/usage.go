package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/handler/dto"
	"github.com/empireos/entitlement-api/internal/ierr"
	"github.com/empireos/entitlement-api/internal/service"
)

type UsageHandler struct {
	usage  *service.UsageService
	logger *zap.Logger
}

func NewUsageHandler(usage *service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		usage:  usage,
		logger: logger.Named("UsageHandler"),
	}
}

func (h *UsageHandler) Series(c *gin.Context) {
	licenseID, ok := h.licenseID(c)
	if !ok {
		return
	}

	var req dto.UsageSeriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -90)
	to := now
	if req.From != "" {
		from, _ = time.Parse("2006-01-02", req.From)
	}
	if req.To != "" {
		to, _ = time.Parse("2006-01-02", req.To)
	}

	stats, err := h.usage.Series(c.Request.Context(), licenseID, from, to)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUsageSeriesResponse(licenseID, stats))
}

// Backfill triggers synchronous history generation. Issuance already enqueues
// the same work; this endpoint exists for demo seeding and re-runs.
func (h *UsageHandler) Backfill(c *gin.Context) {
	licenseID, ok := h.licenseID(c)
	if !ok {
		return
	}

	rows, err := h.usage.Backfill(c.Request.Context(), licenseID, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.BackfillResponse{
		LicenseID:   licenseID,
		RowsWritten: rows,
	})
}

func (h *UsageHandler) licenseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Warn("Invalid license id received", zap.String("id_param", idStr))
		_ = c.Error(ierr.ErrValidation)
		return 0, false
	}
	return id, true
}
