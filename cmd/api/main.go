package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facetrack/internal/attendance"
	"facetrack/internal/auth"
	"facetrack/internal/config"
	"facetrack/internal/employee"
	"facetrack/internal/faceclient"
	"facetrack/internal/httpmiddleware"
	"facetrack/internal/queue"
	"facetrack/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "facetrack:events")
	}

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	if err := face.Health(context.Background()); err != nil {
		log.Printf("warning: face service not reachable: %v", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return err
	}

	app := &application{
		cfg:       cfg,
		users:     auth.NewUsers(db.Client),
		employees: employee.NewRepository(db.Client),
		records:   attendance.NewRepository(db.Client),
		face:      face,
		redis:     redisClient,
	}
	app.svc = attendance.NewService(app.records, redisClient, q)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/register", app.register)
	r.POST("/v1/auth/login", app.login)

	authGroup := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.GET("/users/:id", app.getUser)
	authGroup.PUT("/users/:id", app.updateUser)
	authGroup.DELETE("/users/:id", app.deleteUser)

	authGroup.POST("/employees", app.enrollEmployee)
	authGroup.GET("/employees", app.listEmployees)
	authGroup.GET("/employees/:id", app.getEmployee)
	authGroup.PUT("/employees/:id", app.updateEmployee)
	authGroup.DELETE("/employees/:id", app.deleteEmployee)

	authGroup.POST("/captures", app.submitCapture)
	authGroup.POST("/checkins", app.checkIn)

	authGroup.GET("/attendance", app.listAttendance)
	authGroup.GET("/attendance/:id", app.getAttendance)
	authGroup.PUT("/attendance/:id", app.updateAttendance)
	authGroup.DELETE("/attendance/:id", app.deleteAttendance)
	authGroup.PUT("/attendance/:id/checkout", app.checkOut)

	authGroup.GET("/reports/:kind", app.getReport)
	authGroup.GET("/reports/:kind/export", app.exportReport)
	authGroup.GET("/stats/today", app.todayStats)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
