package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/daryakhm/flower_shop/internal/config"
	"github.com/daryakhm/flower_shop/internal/es"
	"github.com/daryakhm/flower_shop/internal/handlers"
	"github.com/daryakhm/flower_shop/internal/logging"
	authmw "github.com/daryakhm/flower_shop/internal/middleware/auth"
	"github.com/daryakhm/flower_shop/internal/mykafka"
	"github.com/daryakhm/flower_shop/internal/service/order"
	"github.com/daryakhm/flower_shop/internal/service/token"
	httpserver "github.com/daryakhm/flower_shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	flowersHandler := &handlers.FlowerHandler{DB: db, Producer: producer, ESIndex: configuration.ES_INDEX}
	searchHandler := &handlers.SearchHandler{Index: configuration.ES_INDEX}
	if configuration.ES_URL != "" {
		client, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		flowersHandler.ES = client
		searchHandler.ES = client
	}

	tokens := &token.Service{Secret: []byte(configuration.JWT_SECRET)}
	orderService := &order.Service{DB: db}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		Auth:       &authmw.Middleware{DB: db, Tokens: tokens},
		AuthH:      &handlers.AuthHandler{DB: db, Tokens: tokens, BotToken: configuration.TELEGRAM_BOT_TOKEN, Producer: producer},
		Flowers:    flowersHandler,
		Categories: &handlers.CategoryHandler{DB: db},
		Orders:     &handlers.OrderHandler{Service: orderService, Producer: producer},
		Reviews:    &handlers.ReviewHandler{DB: db},
		Admin:      &handlers.AdminHandler{DB: db},
		Search:     searchHandler,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
