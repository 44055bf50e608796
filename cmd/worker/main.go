package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hmarroquin/labtrack-api/internal/config"
	"github.com/hmarroquin/labtrack-api/internal/email"
	"github.com/hmarroquin/labtrack-api/internal/repository/postgres"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/messaging/redis"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"
	"github.com/hmarroquin/labtrack-api/pkg/worker"
)

// workerEnv is the standalone worker's configuration. Unlike the API it is
// driven purely by environment variables so it can run as a sidecar or cron
// container without a config file.
type workerEnv struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxChannel      string        `envconfig:"OUTBOX_CHANNEL" default:"labtrack.events"`

	AlertRecipients []string      `envconfig:"ALERT_RECIPIENTS"`
	AlertInterval   time.Duration `envconfig:"ALERT_INTERVAL" default:"24h"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"alerts@labtrack.local"`
}

func main() {
	log := logger.NewLogger(&logger.Config{Component: "worker"})

	var env workerEnv
	if err := envconfig.Process("labtrack", &env); err != nil {
		log.Fatal(err, "failed to load environment")
	}

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     env.DBHost,
		Port:     env.DBPort,
		User:     env.DBUser,
		Password: env.DBPassword,
		Name:     env.DBName,
		SSLMode:  env.DBSSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewBroker(redis.Config{URL: env.RedisURL}, log)
	if err != nil {
		log.Fatal(err, "failed to connect to broker")
	}
	defer broker.Close()

	m := metrics.New("labtrack_worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	branchRepo := postgres.NewBranchRepository(db)
	supplyRepo := postgres.NewSupplyRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    env.OutboxBatchSize,
		PollInterval: env.OutboxPollInterval,
		Channel:      env.OutboxChannel,
	}, log, m)
	go processor.Start(ctx)

	if len(env.AlertRecipients) > 0 {
		sender := email.NewSMTPSender(config.SMTPConfig{
			Host:     env.SMTPHost,
			Port:     env.SMTPPort,
			User:     env.SMTPUser,
			Password: env.SMTPPassword,
			From:     env.SMTPFrom,
		}, log)
		alerts := worker.NewStockAlertWorker(branchRepo, supplyRepo, sender, worker.StockAlertConfig{
			Interval:   env.AlertInterval,
			Recipients: env.AlertRecipients,
		}, log, m)
		go alerts.Start(ctx)
	}

	<-ctx.Done()
	log.Info("shutting down worker")
}
