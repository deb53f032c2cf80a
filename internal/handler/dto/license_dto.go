package dto

import (
	"time"

	"github.com/empireos/entitlement-api/internal/domain/license"
)

type IssueLicenseRequest struct {
	LicenseType        string     `json:"license_type" binding:"required,oneof=basic professional enterprise supplier manufacturer academic"`
	OrgName            string     `json:"org_name" binding:"required"`
	ContactEmail       *string    `json:"contact_email" binding:"omitempty,email"`
	ContactPhone       *string    `json:"contact_phone"`
	MaxUsers           int        `json:"max_users" binding:"required,gte=1"`
	DurationMonths     int        `json:"duration_months" binding:"required,gte=1"`
	Trial              bool       `json:"trial"`
	ActivatedAt        *time.Time `json:"activated_at"`
	DiscountMultiplier *float64   `json:"discount_multiplier" binding:"omitempty,gt=0,lte=1"`
}

type RenewLicenseRequest struct {
	AdditionalMonths int `json:"additional_months" binding:"required,gte=1"`
}

type StatusActionRequest struct {
	Reason string `json:"reason"`
}

type AppendGrantsRequest struct {
	Features []string `json:"features"`
	Modules  []string `json:"modules"`
}

type TransactionResponse struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
}

type LicenseResponse struct {
	ID                 int64                 `json:"id"`
	LicenseKey         string                `json:"license_key"`
	LicenseType        license.Tier          `json:"license_type"`
	Status             license.Status        `json:"status"`
	OrgName            string                `json:"org_name"`
	ContactEmail       *string               `json:"contact_email,omitempty"`
	ContactPhone       *string               `json:"contact_phone,omitempty"`
	MaxUsers           int                   `json:"max_users"`
	CurrentUsers       int                   `json:"current_users"`
	Features           []string              `json:"features"`
	Modules            []string              `json:"modules"`
	TransactionHistory []TransactionResponse `json:"transaction_history"`
	ActivatedAt        *time.Time            `json:"activated_at,omitempty"`
	ExpiresAt          *time.Time            `json:"expires_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

func NewLicenseResponse(lic *license.License) *LicenseResponse {
	resp := &LicenseResponse{
		ID:           lic.ID,
		LicenseKey:   lic.LicenseKey,
		LicenseType:  lic.LicenseType,
		Status:       lic.Status,
		OrgName:      lic.OrgName,
		MaxUsers:     lic.MaxUsers,
		CurrentUsers: lic.CurrentUsers,
		Features:     lic.Features,
		Modules:      lic.Modules,
		CreatedAt:    lic.CreatedAt,
		UpdatedAt:    lic.UpdatedAt,
	}

	resp.TransactionHistory = make([]TransactionResponse, len(lic.TransactionHistory))
	for i, t := range lic.TransactionHistory {
		resp.TransactionHistory[i] = TransactionResponse{
			Date:        t.Date,
			Amount:      t.Amount,
			Type:        string(t.Type),
			Description: t.Description,
		}
	}

	if lic.ContactEmail.Valid {
		resp.ContactEmail = &lic.ContactEmail.String
	}
	if lic.ContactPhone.Valid {
		resp.ContactPhone = &lic.ContactPhone.String
	}
	if lic.ActivatedAt.Valid {
		resp.ActivatedAt = &lic.ActivatedAt.Time
	}
	if lic.ExpiresAt.Valid {
		resp.ExpiresAt = &lic.ExpiresAt.Time
	}
	return resp
}

type ListLicensesRequest struct {
	Status    *license.Status `form:"status" binding:"omitempty,oneof=active trial expired suspended cancelled"`
	Tier      *license.Tier   `form:"license_type" binding:"omitempty,oneof=basic professional enterprise supplier manufacturer academic"`
	OrgName   *string         `form:"org_name"`
	Limit     int             `form:"limit,default=20" binding:"omitempty,gte=0"`
	Offset    int             `form:"offset,default=0" binding:"omitempty,gte=0"`
	SortBy    string          `form:"sort_by,default=created_at"`
	SortOrder string          `form:"sort_order,default=DESC" binding:"omitempty,oneof=ASC DESC"`
}

type PaginatedLicenseResponse struct {
	Licenses   []*LicenseResponse `json:"licenses"`
	TotalCount int64              `json:"total_count"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

type EntitlementsResponse struct {
	Features []string `json:"features"`
	Modules  []string `json:"modules"`
}
