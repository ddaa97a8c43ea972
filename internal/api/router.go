package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/clinicdesk/clinic-booking-backend/internal/auth"
	"github.com/clinicdesk/clinic-booking-backend/internal/booking"
	bookingHttp "github.com/clinicdesk/clinic-booking-backend/internal/booking/http"
	"github.com/clinicdesk/clinic-booking-backend/internal/doctor"
	doctorHttp "github.com/clinicdesk/clinic-booking-backend/internal/doctor/http"
	"github.com/clinicdesk/clinic-booking-backend/internal/file"
	fileHttp "github.com/clinicdesk/clinic-booking-backend/internal/file/http"
	"github.com/clinicdesk/clinic-booking-backend/internal/user"
	userHttp "github.com/clinicdesk/clinic-booking-backend/internal/user/http"
)

// Config carries everything the router needs to assemble the API.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService    user.Service
	DoctorService  doctor.Service
	BookingService booking.Service
	FileService    file.Service

	JWTManager *auth.JWTManager
}

// NewRouter assembles middleware and registers every module's routes
// under /v1.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	authMiddleware := auth.Required(cfg.JWTManager)

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	doctorHandler := doctorHttp.NewHandler(cfg.DoctorService, cfg.FileService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	fileHandler := fileHttp.NewHandler(cfg.FileService)

	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		doctorHttp.RegisterRoutes(v1, doctorHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		fileHttp.RegisterRoutes(v1, fileHandler)
	}

	return r
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
