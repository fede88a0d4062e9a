package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"bugtalk/internal/config"
	"bugtalk/internal/mail"
	"bugtalk/internal/model"
	"bugtalk/internal/platform/database"
	rabbitmqClient "bugtalk/internal/platform/rabbitmq"
	redisClient "bugtalk/internal/platform/redis"
	"bugtalk/internal/worker"
)

type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	MailWorker *worker.MailWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	app := &App{Config: cfg, StartedAt: time.Now()}
	if err := app.open(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		return err
	}

	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MailQueue); err != nil {
		return err
	}

	sender := mail.NewSender(
		mail.SMTPConfig{
			Addr:     cfg.SMTPAddr(),
			Host:     cfg.SMTP.Host,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		},
		mail.SenderOptions{
			AppName:     cfg.App.Name,
			FrontendURL: cfg.App.FrontendURL,
			VerifyTTL:   cfg.Auth.VerifyTokenTTL(),
			ResetTTL:    cfg.Auth.ResetTokenTTL(),
		},
	)
	a.MailWorker = worker.NewMailWorker(a.MQConn, sender, cfg.RabbitMQ.MailQueue)
	if err := a.MailWorker.Start(ctx); err != nil {
		return fmt.Errorf("start mail worker failed: %w", err)
	}
	return nil
}

func (a *App) PingDB(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *App) PingRedis(ctx context.Context) error {
	return a.Redis.Ping(ctx).Err()
}

func (a *App) PingRabbitMQ(_ context.Context) error {
	if a.MQConn == nil || a.MQConn.IsClosed() {
		return errors.New("connection closed")
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.MailWorker != nil {
		a.MailWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
