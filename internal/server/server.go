package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trainerbook/internal/auth"
	"trainerbook/internal/availability"
	"trainerbook/internal/booking"
	"trainerbook/internal/config"
	"trainerbook/internal/ledger"
	"trainerbook/internal/user"
)

// Deps are the wired services the HTTP layer routes to.
type Deps struct {
	Users        user.Repository
	Packages     ledger.Repository
	Availability *availability.Service
	Bookings     *booking.Service
	Stats        *booking.StatsRepository
	Notifier     booking.Notifier
	Checks       map[string]HealthCheck
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)))

	userHandler := user.NewHandler(deps.Users)
	ledgerHandler := ledger.NewHandler(deps.Packages)
	availabilityHandler := availability.NewHandler(deps.Availability)
	bookingHandler := booking.NewHandler(deps.Bookings)
	statsHandler := booking.NewStatsHandler(deps.Stats)

	router.GET("/health", Health(deps.Checks))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/availability", availabilityHandler.ListSlots)
		protected.GET("/packages", ledgerHandler.ListMine)
		protected.GET("/packages/:packageID", ledgerHandler.GetBalance)
		protected.GET("/bookings", bookingHandler.ListMyBookings)
		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.CancelBooking)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", bookingHandler.ListBookingsByDate)
		admin.PATCH("/bookings/:bookingID", bookingHandler.RescheduleBooking)
		admin.GET("/stats/daily", statsHandler.Daily)
		admin.GET("/stats/packages", statsHandler.ByPackage)
		admin.POST("/test-email", TestEmail(deps.Notifier))
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
