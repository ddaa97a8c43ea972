package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-booking-backend/internal/access"
	"github.com/clinicdesk/clinic-booking-backend/internal/api"
	"github.com/clinicdesk/clinic-booking-backend/internal/auth"
	"github.com/clinicdesk/clinic-booking-backend/internal/booking"
	"github.com/clinicdesk/clinic-booking-backend/internal/doctor"
	"github.com/clinicdesk/clinic-booking-backend/internal/file"
	"github.com/clinicdesk/clinic-booking-backend/internal/notify"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/storage"
	"github.com/clinicdesk/clinic-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the
// application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	LockTimeout  time.Duration
	UploadDir    string
	Logger       zerolog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer wires every module together and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	store, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	fileRepo := file.NewRepository(cfg.DBPool)
	fileService := file.NewService(fileRepo, store)

	doctorRepo := doctor.NewPgxRepository(cfg.DBPool)
	guard := access.NewGuard(doctorRepo)
	doctorService := doctor.NewService(doctorRepo, guard)

	bookingRepo := booking.NewPgxRepository(cfg.DBPool, cfg.LockTimeout)
	notifier := notify.NewLogNotifier(cfg.Logger)
	bookingService := booking.NewService(bookingRepo, guard, notifier, cfg.Logger)

	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		UserService:    userService,
		DoctorService:  doctorService,
		BookingService: bookingService,
		FileService:    fileService,
		JWTManager:     jwtManager,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}
