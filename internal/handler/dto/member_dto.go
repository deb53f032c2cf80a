package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/empireos/entitlement-api/internal/domain/member"
)

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required"`
}

type RoleAssignmentResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type MemberResponse struct {
	ID             int64                  `json:"id"`
	LicenseID      int64                  `json:"license_id"`
	UserID         uuid.UUID              `json:"user_id"`
	IsAdmin        bool                   `json:"is_admin"`
	RoleAssignment RoleAssignmentResponse `json:"role_assignment"`
	Active         bool                   `json:"active"`
	LastLogin      *time.Time             `json:"last_login,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

func NewMemberResponse(m *member.Member) *MemberResponse {
	resp := &MemberResponse{
		ID:        m.ID,
		LicenseID: m.LicenseID,
		UserID:    m.UserID,
		IsAdmin:   m.IsAdmin,
		RoleAssignment: RoleAssignmentResponse{
			Role:        m.Role,
			Permissions: m.Permissions,
		},
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
	if m.LastLogin.Valid {
		resp.LastLogin = &m.LastLogin.Time
	}
	return resp
}
