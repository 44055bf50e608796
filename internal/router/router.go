package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/hmarroquin/labtrack-api/internal/handler/exam"
	"github.com/hmarroquin/labtrack-api/internal/handler/health"
	"github.com/hmarroquin/labtrack-api/internal/handler/patient"
	"github.com/hmarroquin/labtrack-api/internal/handler/payment"
	"github.com/hmarroquin/labtrack-api/internal/handler/supply"
	"github.com/hmarroquin/labtrack-api/internal/middleware"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
)

type Handlers struct {
	Health  *health.Handler
	Patient *patient.Handler
	Exam    *exam.Handler
	Payment *payment.Handler
	Supply  *supply.Handler
}

type Config struct {
	JWTSecret string
	RateRPS   float64
	RateBurst int
}

func New(cfg Config, log *logger.Logger, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	r.Use(middleware.Branch())
	r.Use(middleware.Logger(log))

	h.Health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	if cfg.RateRPS > 0 {
		v1.Use(middleware.RateLimit(rate.Limit(cfg.RateRPS), cfg.RateBurst))
	}
	if cfg.JWTSecret != "" {
		v1.Use(middleware.Auth(cfg.JWTSecret))
	}

	h.Patient.RegisterRoutes(v1)
	h.Exam.RegisterRoutes(v1)
	h.Payment.RegisterRoutes(v1)
	h.Supply.RegisterRoutes(v1)

	return r
}
