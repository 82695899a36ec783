package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/meistersol/bookingbot/config"
	"github.com/meistersol/bookingbot/internal/cache"
	"github.com/meistersol/bookingbot/internal/gateway/whatsapp"
	healthhandler "github.com/meistersol/bookingbot/internal/handler/health"
	paymenthandler "github.com/meistersol/bookingbot/internal/handler/payment"
	webhookhandler "github.com/meistersol/bookingbot/internal/handler/webhook"
	"github.com/meistersol/bookingbot/internal/repository/postgres"
	"github.com/meistersol/bookingbot/internal/router"
	"github.com/meistersol/bookingbot/internal/service/conversation"
	menuservice "github.com/meistersol/bookingbot/internal/service/menu"
	"github.com/meistersol/bookingbot/internal/service/notification"
	paymentservice "github.com/meistersol/bookingbot/internal/service/payment"
	"github.com/meistersol/bookingbot/pkg/logger"
	"github.com/meistersol/bookingbot/pkg/metrics"
)

func main() {
	cfg, secrets, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(postgres.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	redis, err := cache.New(cache.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer redis.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace)

	clientRepo := postgres.NewClientRepository(db)
	userRepo := postgres.NewUserRepository(db)
	menuRepo := postgres.NewMenuRepository(db)
	pocRepo := postgres.NewPOCRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	apptRepo := postgres.NewAppointmentRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	txnRepo := postgres.NewTransactionRepository(db)

	gateway := whatsapp.New(whatsapp.Config{
		BaseURL:       cfg.WhatsApp.BaseURL,
		APIVersion:    cfg.WhatsApp.APIVersion,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   secrets.WhatsAppAccessToken,
		Timeout:       cfg.WhatsApp.Timeout,
	}, log, m)

	templates := notification.NewTemplateStore(templateRepo, 5*time.Minute)
	notifier := notification.NewService(templates, gateway, notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: secrets.SMTPUsername,
		Password: secrets.SMTPPassword,
		From:     cfg.SMTP.From,
	}, log)

	payments := paymentservice.NewService(paymentservice.Config{
		KeyID:         secrets.RazorpayKeyID,
		KeySecret:     secrets.RazorpayKeySecret,
		WebhookSecret: secrets.RazorpayWebhookSecret,
		Currency:      cfg.Payment.Currency,
		LinkExpiry:    cfg.Payment.LinkExpiry,
		PollInterval:  cfg.Payment.PollInterval,
	}, txnRepo, redis, log, m)

	resolver := menuservice.NewService(menuRepo, pocRepo, slotRepo, apptRepo, m)

	conv := conversation.NewService(conversation.Deps{
		Clients:   clientRepo,
		Users:     userRepo,
		Menus:     menuRepo,
		POCs:      pocRepo,
		Slots:     slotRepo,
		Appts:     apptRepo,
		Resolver:  resolver,
		Templates: templates,
		Notifier:  notifier,
		Payments:  payments,
		Gateway:   gateway,
		Sessions:  conversation.NewSessionStore(redis),
		Codec:     conversation.NewCodec(secrets.ReplyTokenSecret),
		Logger:    log,
		Metrics:   m,
	})
	payments.SetHooks(conv)

	if err := payments.ResumePending(context.Background()); err != nil {
		log.Error(err, "failed to resume pending transactions")
	}

	engine := router.New(router.Config{
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
	},
		webhookhandler.NewHandler(conv, secrets.WhatsAppVerifyToken, log),
		paymenthandler.NewHandler(payments, log),
		healthhandler.NewHandler(db),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	payments.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
	log.Info("server stopped")
}
