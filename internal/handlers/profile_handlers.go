package handlers

import (
	"net/http"

	"billhive/internal/common"
	"billhive/internal/models"
	"billhive/internal/services"

	"github.com/labstack/echo/v4"
)

type ProfileHandlers struct {
	userSvc services.UserService
}

func NewProfileHandlers(userSvc services.UserService) *ProfileHandlers {
	return &ProfileHandlers{userSvc: userSvc}
}

// GetProfile returns the authenticated user's profile
func (h *ProfileHandlers) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	profile, err := h.userSvc.GetProfile(ctx, userID)
	if err != nil {
		return common.SendNotFoundError(c, "User profile")
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfileRequest carries a partial profile update; absent fields are
// left untouched.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	CompanyName *string `json:"company_name"`
	Address     *string `json:"address"`
	TaxID       *string `json:"tax_id"`
}

// UpdateProfileResponse confirms the update and returns the updated profile
type UpdateProfileResponse struct {
	Success        bool                `json:"success"`
	Message        string              `json:"message"`
	UpdatedProfile *models.UserProfile `json:"updated_profile,omitempty"`
}

// UpdateProfile updates the authenticated user's profile
func (h *ProfileHandlers) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	profile, err := h.userSvc.UpdateProfile(ctx, userID, &services.UpdateProfileRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		Address:     req.Address,
		TaxID:       req.TaxID,
	})
	if err != nil {
		return c.JSON(http.StatusNotFound, UpdateProfileResponse{
			Success: false,
			Message: "User profile not found",
		})
	}

	return c.JSON(http.StatusOK, UpdateProfileResponse{
		Success:        true,
		Message:        "Profile updated successfully",
		UpdatedProfile: profile,
	})
}
