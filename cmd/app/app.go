package main

import (
	"context"
	"fmt"

	"planpass/internal/db"
	"planpass/internal/email"
	"planpass/internal/events"
	"planpass/internal/logger"
	"planpass/internal/plan"
	"planpass/internal/subscription"
	"planpass/internal/user"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// app holds the wired services shared by every subcommand.
type app struct {
	db    *sqlx.DB
	redis *redis.Client

	users         user.Service
	plans         plan.Service
	subscriptions subscription.Service
	sweeper       *subscription.Sweeper
	emails        *email.Service

	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	logger.Info("connecting to database")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = database
	a.closers = append(a.closers, database.Close)

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("migrations completed")

	redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = redisClient
	a.closers = append(a.closers, redisClient.Close)

	a.users = user.NewService(user.NewRepository(database), cfg.JWTSecret)

	planRepo := plan.NewCachedRepository(plan.NewRepository(database), redisClient, cfg.PlanCacheTTL)
	a.plans = plan.NewService(planRepo)

	publisher, err := a.publisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	subRepo := subscription.NewRepository(database)
	a.subscriptions = subscription.NewService(subRepo, a.plans, subscription.WithPublisher(publisher))
	a.sweeper = subscription.NewSweeper(subRepo, cfg.SweepInterval,
		subscription.WithPublisher(publisher),
		subscription.WithRunOnStart(cfg.SweepOnStart),
	)

	return a, nil
}

// publisher fans lifecycle events out to the broker and to email
// notifications, whichever are configured.
func (a *app) publisher() (events.Publisher, error) {
	var fanout events.Fanout

	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		a.closers = append(a.closers, rabbit.Close)
		fanout = append(fanout, events.NewBreakerPublisher(rabbit, events.DefaultBreakerSettings()))
		logger.Info("publishing lifecycle events to rabbitmq", "exchange", events.ExchangeName)
	}

	if cfg.NotificationsEnabled {
		a.emails = email.New(a.redis, email.NewSMTPSender(email.SMTPConfig{
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Pass:     cfg.SMTPPass,
		}))
		fanout = append(fanout, email.NewNotifier(a.users, a.emails))
	}

	if len(fanout) == 0 {
		return events.NoopPublisher{}, nil
	}
	return fanout, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("error during close", "error", err)
		}
	}
}
