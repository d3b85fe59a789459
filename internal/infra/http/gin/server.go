package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayfinder/internal/infra/obs"
)

type Options struct {
	Env         string
	Addr        string
	CORSOrigins []string
}

type Handlers struct {
	Auth      *AuthHandler
	Listings  *ListingHandler
	Bookings  *BookingHandler
	Resolver  ActorResolver
	RateLimit *RateLimit
}

func NewServer(opts Options, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(opts Options, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(opts.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api")
	api.Use(AuthMiddleware{Resolver: h.Resolver, Logger: obsMW.Logger}.Handle)
	if h.RateLimit != nil {
		api.Use(h.RateLimit.Handle)
	}

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", h.Auth.Me)
		auth.PUT("/profile", h.Auth.UpdateProfile)
		auth.PUT("/become-host", h.Auth.BecomeHost)
	}
	if h.Listings != nil {
		listings := api.Group("/listings")
		listings.GET("", h.Listings.Search)
		listings.GET("/host/my-listings", h.Listings.HostListings)
		listings.GET("/:id", h.Listings.Get)
		listings.POST("", h.Listings.Create)
		listings.PUT("/:id", h.Listings.Update)
		listings.DELETE("/:id", h.Listings.Delete)
		listings.POST("/:id/photos", h.Listings.UploadPhoto)
	}
	if h.Bookings != nil {
		bookings := api.Group("/bookings")
		bookings.POST("", h.Bookings.Create)
		bookings.GET("/my-bookings", h.Bookings.MyBookings)
		bookings.GET("/host/bookings", h.Bookings.HostBookings)
		bookings.GET("/:id", h.Bookings.Get)
		bookings.PUT("/:id/status", h.Bookings.UpdateStatus)
		bookings.DELETE("/:id", h.Bookings.Delete)
		bookings.POST("/:id/pay", h.Bookings.Pay)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
