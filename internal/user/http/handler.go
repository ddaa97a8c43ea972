package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicdesk/clinic-booking-backend/internal/auth"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/response"
	"github.com/clinicdesk/clinic-booking-backend/internal/user"
)

type Handler struct {
	userService user.Service
	jwtManager  *auth.JWTManager
}

func NewHandler(userService user.Service, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Register handles the signup process.
// It validates the payload and creates a new account if the email is unique.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	u, err := h.userService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "User signed up successfully.", gin.H{
		"user": NewUserResponse(u),
	})
}

// Login authenticates an account using email and password.
// On success, it returns a JWT access token and the account profile.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	u, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusInternalServerError, "failed to generate token"))
		return
	}

	response.Success(c, http.StatusOK, "Login successful.", gin.H{
		"access_token": token,
		"user":         NewUserResponse(u),
	})
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	callerID := auth.GetCallerID(c)
	if callerID == "" {
		response.Error(c, apperror.New(http.StatusUnauthorized, "unauthorized"))
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", gin.H{
		"user": NewUserResponse(u),
	})
}
