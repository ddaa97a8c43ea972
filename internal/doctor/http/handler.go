package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking-backend/internal/auth"
	"github.com/clinicdesk/clinic-booking-backend/internal/doctor"
	"github.com/clinicdesk/clinic-booking-backend/internal/file"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/response"
)

type Handler struct {
	service     doctor.Service
	fileService file.Service
}

func NewHandler(service doctor.Service, fileService file.Service) *Handler {
	return &Handler{
		service:     service,
		fileService: fileService,
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	d, err := h.service.Create(c.Request.Context(), auth.GetCallerID(c), doctor.CreateRequest{
		Name:       req.Name,
		Specialty:  req.Specialty,
		SlotGroups: req.AvailableSlots,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Doctor profile created successfully.", gin.H{
		"doctor": NewDoctorResponse(d),
	})
}

func (h *Handler) List(c *gin.Context) {
	var req ListDoctorsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	req.Normalize()

	doctors, total, err := h.service.List(c.Request.Context(), doctor.Filter{
		Name:      req.Name,
		Specialty: req.Specialty,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]DoctorResponse, len(doctors))
	for i, d := range doctors {
		items[i] = NewDoctorResponse(d)
	}

	response.Success(c, http.StatusOK, "", gin.H{
		"doctors": response.NewPageResponse(items, req.Page, req.PageSize, total),
	})
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid doctor id"))
		return
	}

	d, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", gin.H{
		"doctor": NewDoctorResponse(d),
	})
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid doctor id"))
		return
	}

	var req UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	d, err := h.service.Update(c.Request.Context(), id, auth.GetCallerID(c), doctor.UpdateRequest{
		Name:      req.Name,
		Specialty: req.Specialty,
		Offer:     req.AvailableSlots,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Doctor profile updated successfully.", gin.H{
		"doctor": NewDoctorResponse(d),
	})
}

// Delete removes a doctor profile, or, when the request carries a
// {date, slots} body, withdraws only those slot offers.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid doctor id"))
		return
	}

	callerID := auth.GetCallerID(c)

	var req WithdrawSlotsRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if err := h.service.WithdrawSlots(c.Request.Context(), id, callerID, req.Date, req.Slots); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, "Slots withdrawn successfully.", nil)
		return
	} else if !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, callerID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Doctor profile deleted successfully.", nil)
}

// UploadPhoto stores a profile photo for the doctor.
func (h *Handler) UploadPhoto(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid doctor id"))
		return
	}

	header, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "photo file is required"))
		return
	}

	callerID := auth.GetCallerID(c)
	ctx := c.Request.Context()

	f, err := h.fileService.Upload(ctx, header, callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	previous, err := h.service.SetPhoto(ctx, id, callerID, &f.ID)
	if err != nil {
		// The profile was not updated; drop the orphaned upload.
		_ = h.fileService.Delete(ctx, f.ID)
		response.Error(c, err)
		return
	}

	if previous != nil {
		_ = h.fileService.Delete(ctx, *previous)
	}

	response.Success(c, http.StatusOK, "Photo uploaded successfully.", gin.H{
		"photo_url": file.FileURL(f.ID),
	})
}

// Photo streams the doctor's profile photo, or its thumbnail with
// ?thumbnail=true.
func (h *Handler) Photo(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid doctor id"))
		return
	}

	d, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if d.PhotoFileID == nil {
		response.Error(c, apperror.New(http.StatusNotFound, "doctor has no photo"))
		return
	}

	var (
		stream io.ReadCloser
		meta   *file.File
	)
	if c.Query("thumbnail") == "true" {
		stream, meta, err = h.fileService.DownloadThumbnail(c.Request.Context(), *d.PhotoFileID)
	} else {
		stream, meta, err = h.fileService.Download(c.Request.Context(), *d.PhotoFileID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", meta.ContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, stream)
}
