package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/handler/dto"
	"github.com/empireos/entitlement-api/internal/ierr"
	"github.com/empireos/entitlement-api/internal/service"
)

type MemberHandler struct {
	members *service.MemberService
	logger  *zap.Logger
}

func NewMemberHandler(members *service.MemberService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{
		members: members,
		logger:  logger.Named("MemberHandler"),
	}
}

func (h *MemberHandler) Add(c *gin.Context) {
	licenseID, ok := h.licenseID(c)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	m, err := h.members.AddMember(c.Request.Context(), licenseID, req.UserID, req.Role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewMemberResponse(m))
}

func (h *MemberHandler) List(c *gin.Context) {
	licenseID, ok := h.licenseID(c)
	if !ok {
		return
	}

	members, err := h.members.ListMembers(c.Request.Context(), licenseID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses := make([]*dto.MemberResponse, len(members))
	for i, m := range members {
		responses[i] = dto.NewMemberResponse(m)
	}
	c.JSON(http.StatusOK, gin.H{"members": responses})
}

func (h *MemberHandler) Remove(c *gin.Context) {
	licenseID, ok := h.licenseID(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		h.logger.Warn("Invalid user id received", zap.String("user_id_param", c.Param("userId")))
		_ = c.Error(ierr.ErrValidation)
		return
	}

	if err := h.members.RemoveMember(c.Request.Context(), licenseID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func (h *MemberHandler) licenseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Warn("Invalid license id received", zap.String("id_param", idStr))
		_ = c.Error(ierr.ErrValidation)
		return 0, false
	}
	return id, true
}
