package main

import (
	// standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// third-party
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	// internal
	"github.com/inkfleet/inkfleet/internal/auth"
	"github.com/inkfleet/inkfleet/internal/config"
	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/deviceapi"
	"github.com/inkfleet/inkfleet/internal/handlers"
	"github.com/inkfleet/inkfleet/internal/logging"
	"github.com/inkfleet/inkfleet/internal/middleware"
	"github.com/inkfleet/inkfleet/internal/rendering"
	"github.com/inkfleet/inkfleet/internal/screens"
	"github.com/inkfleet/inkfleet/internal/storage"
	"github.com/inkfleet/inkfleet/internal/version"
)

func main() {
	_ = godotenv.Load()
	logging.InfoWithComponent(logging.ComponentStartup, "Starting InkFleet", "version", version.String())

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if err := database.Initialize(); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := auth.SeedAdminUser(); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to seed admin user", "error", err)
		os.Exit(1)
	}

	htmlRenderer, err := rendering.NewHTMLRenderer(config.Get("HTML_RENDERER", ""))
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to initialize HTML renderer", "error", err)
		os.Exit(1)
	}
	if htmlRenderer != nil {
		defer htmlRenderer.Close()
	}

	rasterizer := rendering.NewRasterizer(
		rendering.WithHTMLRenderer(htmlRenderer),
		rendering.WithWatermark(config.Get("WATERMARK_TEXT", "")),
	)
	store := storage.GetDefaultArtifactStore()

	db := database.GetDB()
	pipeline := screens.NewService(
		rasterizer,
		store,
		database.NewDeviceService(db),
		database.NewScreenService(db),
		database.NewPlaylistService(db),
		config.Get("CONTENT_PRIORITY", screens.PriorityPushed),
	)

	deviceHandler := deviceapi.NewHandler(pipeline)
	operatorHandler := handlers.NewHandler(pipeline)
	pushLimiter := middleware.NewPushRateLimiter(
		config.GetInt("PUSH_RATE_PER_MINUTE", 30),
		config.GetInt("PUSH_RATE_BURST", 10),
	)

	if !config.GetBool("DEBUG", false) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Configure CORS for browser-based device simulators
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		// device protocol headers
		"ID",
		"Access-Token",
		"Refresh-Rate",
		"Battery-Voltage",
		"Fw-Version",
		"Rssi",
		"Model",
		"Width",
		"Height",
		"User-Agent",
	}
	router.Use(cors.New(corsConfig))

	// Operator session endpoints
	router.POST("/api/auth/login", auth.LoginHandler)
	router.POST("/api/auth/logout", auth.LogoutHandler)

	// Device protocol endpoints (authenticated by device API key headers)
	router.POST("/api/setup", deviceHandler.SetupHandler)
	router.POST("/api/setup/", deviceHandler.SetupHandler)
	router.GET("/api/display", deviceHandler.DisplayHandler)
	router.GET("/api/current_screen", deviceHandler.CurrentScreenHandler)
	router.POST("/api/log", deviceHandler.LogsHandler)
	router.POST("/api/logs", deviceHandler.LogsHandler)

	// Public configuration
	router.GET("/api/refresh-rates", handlers.GetRefreshRatesHandler)

	// Operator API (session authenticated)
	protected := router.Group("/api")
	protected.Use(auth.Middleware())
	{
		protected.POST("/screens", pushLimiter.RateLimit(), operatorHandler.CreateScreenHandler)
		protected.POST("/screens/image", pushLimiter.RateLimit(), operatorHandler.ImportImageHandler)
		protected.GET("/screens", operatorHandler.ListScreensHandler)
		protected.GET("/screens/:id", operatorHandler.GetScreenHandler)
		protected.DELETE("/screens/:id", operatorHandler.DeleteScreenHandler)

		protected.GET("/devices", handlers.GetDevicesHandler)
		protected.GET("/devices/:id", handlers.GetDeviceHandler)
		protected.PATCH("/devices/:id", handlers.UpdateDeviceHandler)
		protected.DELETE("/devices/:id", handlers.DeleteDeviceHandler)
		protected.GET("/devices/:id/image", operatorHandler.GetDeviceImageHandler)

		protected.GET("/devices/:id/playlist", handlers.GetPlaylistHandler)
		protected.POST("/devices/:id/playlist", handlers.AddPlaylistItemHandler)
		protected.PUT("/devices/:id/playlist/order", handlers.ReorderPlaylistHandler)
		protected.DELETE("/playlist-items/:id", handlers.DeletePlaylistItemHandler)

		protected.GET("/devices/:id/logs", handlers.GetTelemetryHandler)
		protected.GET("/device-models", handlers.GetDeviceModelsHandler)

		protected.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get())
		})
	}

	// Rendered artifacts (devices fetch these unauthenticated)
	router.GET("/static/rendered/*filepath", func(c *gin.Context) {
		filepath := c.Param("filepath")
		if strings.HasPrefix(filepath, "/") {
			filepath = filepath[1:]
		}
		if strings.Contains(filepath, "..") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
			return
		}
		c.File(store.GetBasePath() + "/" + filepath)
	})

	host := config.Get("HOST", "")
	port := config.Get("PORT", "8000")
	addr := host + ":" + port

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logging.InfoWithComponent(logging.ComponentStartup, "Listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("[SHUTDOWN] Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("[SHUTDOWN] Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logging.Info("[SHUTDOWN] Server stopped")
}
