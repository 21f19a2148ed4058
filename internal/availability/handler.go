package availability

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trainerbook/internal/api"
	"trainerbook/internal/auth"
	"trainerbook/internal/schedule"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type SlotsQuery struct {
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	PackageID *int   `form:"package_id" validate:"omitempty,gt=0"`
}

type SlotsResponse struct {
	Date  string   `json:"date" example:"2026-03-02"`
	Slots []string `json:"slots" example:"06:00,06:30"`
}

// ListSlots godoc
// @Summary      Available slots
// @Description  Open slots of a day for the caller, optionally for a specific package.
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Param        date        query  string  true   "Day (YYYY-MM-DD)"
// @Param        package_id  query  int     false  "Package ID"
// @Success      200  {object}  availability.SlotsResponse
// @Failure      400  {object}  api.ValidationErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /availability [get]
func (h *Handler) ListSlots(c *gin.Context) {
	role, ok := auth.GetRole(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var q SlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Reason: "validation"})
		return
	}
	if errs := api.ValidateStruct(q); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	day, _ := schedule.ParseDate(q.Date, h.svc.loc)
	slots, err := h.svc.ListAvailableSlots(c.Request.Context(), day, role, q.PackageID)
	if err != nil {
		if errors.Is(err, ErrUnknownPackage) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unknown package", Reason: "validation"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to compute availability"})
		return
	}

	c.JSON(http.StatusOK, SlotsResponse{Date: day.Format(schedule.DateLayout), Slots: slots})
}
