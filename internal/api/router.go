package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickup/internal/auth"
	"pickup/internal/httpmiddleware"
	"pickup/internal/metrics"
	"pickup/internal/photos"
)

// Checker reports whether a backing service is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// RouterConfig holds everything NewRouter wires around the handler.
type RouterConfig struct {
	Production  bool
	CORSOrigins []string
	JWTSecret   string
	JWTIssuer   string

	// WebDir holds teacher-portal/ and admin-dashboard/; missing folders are skipped.
	WebDir string
	// UploadsDir is served under /uploads/pickers when set.
	UploadsDir string

	LoginLimiter httpmiddleware.Limiter
	APILimiter   httpmiddleware.Limiter

	DB    Checker
	Redis Checker // nil when no redis backend is configured
}

const (
	msgLoginLimited = "Too many login attempts, try again later."
	msgAPILimited   = "Too many requests, try again later."
)

// NewRouter builds the HTTP engine.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 4 * photos.MaxImageBytes
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		writeInternal(c, http.StatusInternalServerError, fmt.Sprint(recovered), cfg.Production)
	}))
	r.Use(httpmiddleware.RequestLogger(h.log))
	r.Use(httpmiddleware.SecurityHeaders(cfg.Production))
	r.Use(corsMiddleware(cfg))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "School attendance backend running"})
	})
	r.GET("/healthz", healthz(cfg.DB, cfg.Redis))

	if cfg.UploadsDir != "" {
		r.Static(photos.URLPrefix, cfg.UploadsDir)
	}
	serveDir(r, "/teacher", filepath.Join(cfg.WebDir, "teacher-portal"))
	serveDir(r, "/admin", filepath.Join(cfg.WebDir, "admin-dashboard"))

	apiGroup := r.Group("/api")
	if cfg.APILimiter != nil {
		apiGroup.Use(httpmiddleware.RateLimit(cfg.APILimiter, msgAPILimited, h.log))
	}
	login := []gin.HandlerFunc{h.Login}
	if cfg.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{httpmiddleware.RateLimit(cfg.LoginLimiter, msgLoginLimited, h.log)}, login...)
	}
	apiGroup.POST("/teachers/login", login...)

	authed := apiGroup.Group("", auth.Authenticate(cfg.JWTSecret, cfg.JWTIssuer))
	authed.GET("/protected/ping", h.Ping)

	admin := authed.Group("", auth.RequireAdmin())
	scanner := authed.Group("", auth.RequireScanner())

	admin.GET("/teachers", h.ListTeachers)
	admin.POST("/teachers", h.CreateTeacher)
	admin.PUT("/teachers/:id", h.UpdateTeacher)
	admin.DELETE("/teachers/:id", h.DeleteTeacher)

	scanner.POST("/attendance", h.RecordDeparture)
	admin.GET("/attendance/today", h.Today)
	admin.GET("/attendance/dates", h.Dates)
	admin.GET("/attendance/by-date", h.ByDate)
	admin.GET("/attendance/export", h.Export)
	admin.DELETE("/attendance/by-date", h.DeleteByDate)

	scanner.GET("/children/by-qr", h.ChildByQR)
	admin.GET("/children", h.ListChildren)
	admin.POST("/children", h.CreateChild)
	admin.POST("/children/import", h.ImportChildren)
	admin.POST("/children/register-with-pickers", h.RegisterWithPickers)
	admin.PUT("/children/:id", h.UpdateChild)
	admin.PATCH("/children/:id/qr-hidden", h.SetQRHidden)
	admin.DELETE("/children/:id", h.DeleteChild)
	admin.GET("/children/:id/pickers", h.ListPickers)
	admin.POST("/children/:id/pickers", h.AddPicker)
	admin.PUT("/children/:id/pickers/:pickerId", h.UpdatePicker)
	admin.DELETE("/children/:id/pickers/:pickerId", h.DeletePicker)

	return r
}

func corsMiddleware(cfg RouterConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	switch {
	case cfg.Production && len(cfg.CORSOrigins) > 0:
		cc.AllowOrigins = cfg.CORSOrigins
	case cfg.Production:
		cc.AllowOriginFunc = func(string) bool { return false }
	default:
		cc.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(cc)
}

func healthz(db, rdb Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		dbHealthy := db != nil && db.Healthy(ctx)
		body := gin.H{"status": "ok", "db": dbHealthy}
		if rdb != nil {
			body["redis"] = rdb.Healthy(ctx)
		}
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}

func serveDir(r *gin.Engine, prefix, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	r.Static(prefix, dir)
}
