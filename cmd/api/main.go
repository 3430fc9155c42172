package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/NotJalaAl00/Flint/handlers"
	"github.com/NotJalaAl00/Flint/internal/auth"
	"github.com/NotJalaAl00/Flint/internal/catalog"
	"github.com/NotJalaAl00/Flint/internal/consul"
	"github.com/NotJalaAl00/Flint/internal/email"
	"github.com/NotJalaAl00/Flint/internal/orders"
	"github.com/NotJalaAl00/Flint/internal/otp"
	"github.com/NotJalaAl00/Flint/internal/payments"
	"github.com/NotJalaAl00/Flint/internal/stores/cache"
	"github.com/NotJalaAl00/Flint/internal/stores/kafka"
	"github.com/NotJalaAl00/Flint/internal/stores/postgres"
	"github.com/NotJalaAl00/Flint/internal/users"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/joho/godotenv"
)

const serviceName = "flint-api"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", slog.String(logkey.ERROR, err.Error()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	if err := startApp(); err != nil {
		slog.Error("service shutting down", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	userConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	catalogConf, err := catalog.NewConf(db)
	if err != nil {
		return err
	}
	orderConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}

	cacheConf, err := cache.NewConf()
	if err != nil {
		return fmt.Errorf("connecting to cache: %w", err)
	}
	otpSvc := otp.NewService(cacheConf)

	mailConf, err := email.NewConf()
	if err != nil {
		return fmt.Errorf("configuring mail: %w", err)
	}

	// Kafka is optional; without brokers the service runs but publishes
	// no events.
	var producer payments.Producer
	kafkaConf, err := kafka.NewConf()
	if err != nil {
		slog.Warn("kafka disabled", slog.String(logkey.ERROR, err.Error()))
	} else {
		defer kafkaConf.Close()
		producer = kafkaConf
	}

	gateway, err := payments.NewRazorpayGateway()
	if err != nil {
		return fmt.Errorf("configuring payment gateway: %w", err)
	}
	reconciler, err := payments.NewReconciler(gateway, orderConf, cacheConf, mailConf,
		producer, os.Getenv("RAZORPAY_WEBHOOK_SECRET"))
	if err != nil {
		return fmt.Errorf("configuring reconciler: %w", err)
	}

	keys, err := auth.NewKeys(os.Getenv("SECRET"))
	if err != nil {
		return fmt.Errorf("configuring token keys: %w", err)
	}

	h := handlers.NewHandler(userConf, catalogConf, orderConf, otpSvc, mailConf, reconciler, keys)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Service discovery is optional as well.
	if client, cerr := consul.NewClient(); cerr != nil {
		slog.Warn("consul disabled", slog.String(logkey.ERROR, cerr.Error()))
	} else if client != nil {
		p, _ := strconv.Atoi(port)
		if rerr := consul.RegisterService(client, serviceName, os.Getenv("APP_HOST"), p); rerr != nil {
			slog.Warn("consul registration failed", slog.String(logkey.ERROR, rerr.Error()))
		}
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	api := http.Server{
		Addr:         ":" + port,
		Handler:      handlers.API(appCtx, h, keys),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("api listening", slog.String("addr", api.Addr))
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown started", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := api.Shutdown(ctx); err != nil {
			if cerr := api.Close(); cerr != nil {
				return fmt.Errorf("forcing server close: %w", errors.Join(err, cerr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}
