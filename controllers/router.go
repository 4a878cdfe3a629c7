package controllers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/middleware"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
)

// RouterOptions carries the cross-cutting pieces the router wires in. Any
// nil field switches the matching feature off.
type RouterOptions struct {
	Tokens       *utils.TokenIssuer
	Users        repository.UserRepository
	AllowOrigins []string
	RateLimiter  *middleware.RateLimiter
	Metrics      *middleware.Metrics
	// MediaPath and MediaFS serve locally stored uploads.
	MediaPath string
	MediaFS   http.FileSystem
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery(), middleware.RequestLogger(h.Log))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.ExposeHeaders = []string{"Content-Disposition"}
	corsCfg.MaxAge = 12 * time.Hour
	if len(opts.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Car Inventory API",
			"routes":  []string{"/api/auth", "/api/car-records", "/api/dashboard"},
		})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.MediaFS != nil && opts.MediaPath != "" {
		router.StaticFS(opts.MediaPath, opts.MediaFS)
	}

	auth := middleware.Auth(opts.Tokens, opts.Users, h.Log)
	admin := middleware.RequireAdmin(opts.Users)

	api := router.Group("/api")
	{
		public := api.Group("/auth")
		if opts.RateLimiter != nil {
			public.Use(opts.RateLimiter.Middleware())
		}
		{
			public.POST("/register", h.Register)
			public.POST("/verify-otp", h.VerifyOTP)
			public.POST("/login", h.Login)
			public.POST("/forgot-password", h.ForgotPassword)
			public.POST("/reset-password", h.ResetPassword)
		}

		account := api.Group("/auth", auth)
		{
			account.GET("/verify", h.Verify)
			account.PUT("/me", h.UpdateMe)

			users := account.Group("/users", admin)
			users.GET("", h.ListUsers)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", h.UpdateUser)
			users.DELETE("/:id", h.DeleteUser)
		}

		cars := api.Group("", auth)
		{
			cars.POST("/car-entry", h.CreateCar)
			cars.GET("/car-records", h.ListCars)
			cars.GET("/car/:id", h.GetCar)
			cars.PUT("/car/:id", h.UpdateCar)
			cars.DELETE("/car/:id", h.DeleteCar)
			cars.DELETE("/car/:id/photos/:index", admin, h.DeletePhoto)
			cars.DELETE("/car/:id/video", admin, h.DeleteVideo)
			cars.GET("/dashboard", h.DashboardStats)
			cars.GET("/admin/export-cars", admin, h.ExportCars)
		}
	}

	return router
}
