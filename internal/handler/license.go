package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/handler/dto"
	"github.com/empireos/entitlement-api/internal/ierr"
	"github.com/empireos/entitlement-api/internal/service"
)

type LicenseHandler struct {
	licenses     *service.LicenseService
	entitlements *service.EntitlementService
	logger       *zap.Logger
}

func NewLicenseHandler(licenses *service.LicenseService, entitlements *service.EntitlementService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		licenses:     licenses,
		entitlements: entitlements,
		logger:       logger.Named("LicenseHandler"),
	}
}

func (h *LicenseHandler) Issue(c *gin.Context) {
	var req dto.IssueLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	params := service.IssueParams{
		Tier:           license.Tier(req.LicenseType),
		OrgName:        req.OrgName,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		MaxUsers:       req.MaxUsers,
		DurationMonths: req.DurationMonths,
		Trial:          req.Trial,
	}
	if req.ActivatedAt != nil {
		params.ActivatedAt = *req.ActivatedAt
	}
	if req.DiscountMultiplier != nil {
		params.DiscountMultiplier = *req.DiscountMultiplier
	}

	lic, err := h.licenses.Issue(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) List(c *gin.Context) {
	var req dto.ListLicensesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		return
	}

	params := license.ListParams{
		Status:    req.Status,
		Tier:      req.Tier,
		OrgName:   req.OrgName,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	lics, total, err := h.licenses.List(c.Request.Context(), params, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses := make([]*dto.LicenseResponse, len(lics))
	for i, lic := range lics {
		responses[i] = dto.NewLicenseResponse(lic)
	}

	c.JSON(http.StatusOK, dto.PaginatedLicenseResponse{
		Licenses:   responses,
		TotalCount: total,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

func (h *LicenseHandler) GetByID(c *gin.Context) {
	id, ok := h.licenseID(c)
	if !ok {
		return
	}

	lic, err := h.licenses.Get(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) Renew(c *gin.Context) {
	id, ok := h.licenseID(c)
	if !ok {
		return
	}

	var req dto.RenewLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	lic, err := h.licenses.Renew(c.Request.Context(), id, req.AdditionalMonths, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) Suspend(c *gin.Context) {
	h.statusAction(c, h.licenses.Suspend)
}

func (h *LicenseHandler) Cancel(c *gin.Context) {
	h.statusAction(c, h.licenses.Cancel)
}

func (h *LicenseHandler) Reactivate(c *gin.Context) {
	id, ok := h.licenseID(c)
	if !ok {
		return
	}

	lic, err := h.licenses.Reactivate(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) AppendGrants(c *gin.Context) {
	id, ok := h.licenseID(c)
	if !ok {
		return
	}

	var req dto.AppendGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	lic, err := h.licenses.AppendGrants(c.Request.Context(), id, req.Features, req.Modules)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.entitlements.Invalidate(c.Request.Context(), id)

	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) Entitlements(c *gin.Context) {
	id, ok := h.licenseID(c)
	if !ok {
		return
	}

	ent, err := h.entitlements.Effective(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.EntitlementsResponse{
		Features: ent.Features,
		Modules:  ent.Modules,
	})
}

func (h *LicenseHandler) statusAction(c *gin.Context, action func(ctx context.Context, id int64, reason string, asOf time.Time) (*license.License, error)) {
	id, ok := h.licenseID(c)
	if !ok {
		return
	}

	var req dto.StatusActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}
	}

	lic, err := action(c.Request.Context(), id, req.Reason, time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) licenseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Warn("Invalid license id received", zap.String("id_param", idStr))
		_ = c.Error(ierr.ErrValidation)
		return 0, false
	}
	return id, true
}
