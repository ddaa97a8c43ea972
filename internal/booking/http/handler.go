package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking-backend/internal/auth"
	"github.com/clinicdesk/clinic-booking-backend/internal/booking"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	b, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		CallerID: auth.GetCallerID(c),
		DoctorID: req.DoctorID,
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
		Phone:    req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Booking confirmed!", gin.H{
		"appointment": NewBookingResponse(b),
	})
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	req.Normalize()

	bookings, total, err := h.service.List(c.Request.Context(), auth.GetCallerID(c), booking.Filter{
		DoctorID: req.DoctorID,
		Status:   req.Status,
		Date:     req.Date,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	response.Success(c, http.StatusOK, "", gin.H{
		"appointments": response.NewPageResponse(items, req.Page, req.PageSize, total),
	})
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid appointment id"))
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), id, auth.GetCallerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", gin.H{
		"appointment": NewBookingResponse(b),
	})
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid appointment id"))
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	b, err := h.service.Update(c.Request.Context(), id, auth.GetCallerID(c), booking.UpdateRequest{
		DoctorID: req.DoctorID,
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
		Phone:    req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Booking updated successfully.", gin.H{
		"appointment": NewBookingResponse(b),
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid appointment id"))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, auth.GetCallerID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Booking cancelled successfully.", nil)
}
