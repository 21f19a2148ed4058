package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trainerbook/internal/api"
	"trainerbook/internal/auth"
	"trainerbook/internal/logger"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type CreateBookingRequest struct {
	PackageID int    `json:"package_id" validate:"required,gt=0" example:"3"`
	UserID    *int   `json:"user_id,omitempty" validate:"omitempty,gt=0" example:"7"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02" example:"2026-03-02"`
	Time      string `json:"time" validate:"required,clock" example:"10:00"`
}

type RescheduleBookingRequest struct {
	Date            *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2026-03-03"`
	Time            *string `json:"time,omitempty" validate:"omitempty,clock" example:"11:30"`
	DurationMinutes *int    `json:"duration_minutes,omitempty" validate:"omitempty,gt=0" example:"90"`
}

func actor(c *gin.Context) (int, auth.Role, bool) {
	userID, ok := auth.GetUserID(c)
	role, okRole := auth.GetRole(c)
	if !ok || !okRole {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return 0, "", false
	}
	return userID, role, true
}

func bookingID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID", Reason: "validation"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors to status codes. Conflicts carry the overlap reason.
func writeError(c *gin.Context, err error) {
	category := Category(err)
	resp := api.ErrorResponse{Error: err.Error(), Reason: category}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		resp.Reason = string(conflict.Reason)
	}

	switch category {
	case "validation":
		c.JSON(http.StatusBadRequest, resp)
	case "not_found":
		c.JSON(http.StatusNotFound, resp)
	case "forbidden":
		c.JSON(http.StatusForbidden, resp)
	case "quota_exhausted", "slot_conflict", "already_cancelled":
		c.JSON(http.StatusConflict, resp)
	default:
		logger.Error("booking request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal error"})
	}
}

// CreateBooking godoc
// @Summary      Book a session
// @Description  Books a grid slot on a package. Admins may book for any participant.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Booking"
// @Success      201      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Reason: "validation"})
		return
	}
	if errs := api.ValidateStruct(req); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	create := CreateRequest{
		ActorID:   userID,
		Role:      role,
		PackageID: req.PackageID,
		Date:      req.Date,
		Time:      req.Time,
	}
	if req.UserID != nil {
		create.UserID = *req.UserID
	}

	b, err := h.svc.Create(c.Request.Context(), create)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Clients can cancel up to 3 hours before the start; the session goes back to the package.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.svc.Cancel(c.Request.Context(), CancelRequest{BookingID: id, ActorID: userID, Role: role})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// RescheduleBooking godoc
// @Summary      Move booking
// @Description  Changes date, time and/or duration. Omitted fields keep their value.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                       true  "Booking ID"
// @Param        request    body      RescheduleBookingRequest  true  "New values"
// @Success      200        {object}  Booking
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /admin/bookings/{bookingID} [patch]
func (h *Handler) RescheduleBooking(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Reason: "validation"})
		return
	}
	if errs := api.ValidateStruct(req); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	b, err := h.svc.Reschedule(c.Request.Context(), RescheduleRequest{
		BookingID:       id,
		ActorID:         userID,
		Role:            role,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// GetBooking godoc
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      404        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.svc.Get(c.Request.Context(), id, userID, role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Description  Bookings of every package the caller participates in, newest first.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Booking
// @Failure      401  {object}  api.ErrorResponse
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, _, ok := actor(c)
	if !ok {
		return
	}

	bookings, err := h.svc.ListMine(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListBookingsByDate godoc
// @Summary      Day sheet
// @Description  All bookings of a day, cancelled included.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        date  query     string  true  "Day (YYYY-MM-DD)"
// @Success      200   {array}   Booking
// @Failure      400   {object}  api.ErrorResponse
// @Router       /admin/bookings [get]
func (h *Handler) ListBookingsByDate(c *gin.Context) {
	bookings, err := h.svc.ListByDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}
