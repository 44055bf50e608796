package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmarroquin/labtrack-api/internal/config"
	"github.com/hmarroquin/labtrack-api/internal/email"
	examHandler "github.com/hmarroquin/labtrack-api/internal/handler/exam"
	healthHandler "github.com/hmarroquin/labtrack-api/internal/handler/health"
	patientHandler "github.com/hmarroquin/labtrack-api/internal/handler/patient"
	paymentHandler "github.com/hmarroquin/labtrack-api/internal/handler/payment"
	supplyHandler "github.com/hmarroquin/labtrack-api/internal/handler/supply"
	"github.com/hmarroquin/labtrack-api/internal/repository/postgres"
	"github.com/hmarroquin/labtrack-api/internal/router"
	billingService "github.com/hmarroquin/labtrack-api/internal/service/billing"
	examService "github.com/hmarroquin/labtrack-api/internal/service/exam"
	inventoryService "github.com/hmarroquin/labtrack-api/internal/service/inventory"
	patientService "github.com/hmarroquin/labtrack-api/internal/service/patient"
	pricingService "github.com/hmarroquin/labtrack-api/internal/service/pricing"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/messaging/redis"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"
	"github.com/hmarroquin/labtrack-api/pkg/worker"
)

func main() {
	log := logger.NewLogger(&logger.Config{Component: "api"})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.New("labtrack")

	// Repositories
	patientRepo := postgres.NewPatientRepository(db)
	examRepo := postgres.NewExamRepository(db)
	billingRepo := postgres.NewBillingRepository(db)
	supplyRepo := postgres.NewSupplyRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	branchRepo := postgres.NewBranchRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	pricingSvc := pricingService.NewService(catalogRepo)
	inventorySvc := inventoryService.NewService(supplyRepo, log, m)
	patientSvc := patientService.NewService(patientRepo)
	examSvc := examService.NewService(examRepo, patientRepo, outboxRepo, pricingSvc, inventorySvc, log)
	billingSvc := billingService.NewService(billingRepo, patientRepo, log, m)

	r := router.New(router.Config{
		JWTSecret: cfg.JWT.Secret,
		RateRPS:   50,
		RateBurst: 100,
	}, log, router.Handlers{
		Health:  healthHandler.NewHandler(db),
		Patient: patientHandler.NewHandler(patientSvc),
		Exam:    examHandler.NewHandler(examSvc),
		Payment: paymentHandler.NewHandler(billingSvc),
		Supply:  supplyHandler.NewHandler(inventorySvc),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers share the process in the default deployment; the
	// standalone worker binary exists for running them separately.
	broker, err := redis.NewBroker(redis.Config{URL: cfg.Redis.URL}, log)
	if err != nil {
		log.Error(err, "broker unavailable, outbox events will stay pending")
	} else {
		defer broker.Close()
		processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			Channel:      cfg.Outbox.Channel,
		}, log, m)
		go processor.Start(ctx)
	}

	if len(cfg.Alerts.Recipients) > 0 {
		sender := email.NewSMTPSender(cfg.SMTP, log)
		alerts := worker.NewStockAlertWorker(branchRepo, supplyRepo, sender, worker.StockAlertConfig{
			Interval:   cfg.Alerts.Interval,
			Recipients: cfg.Alerts.Recipients,
		}, log, m)
		go alerts.Start(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
