package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/blocklist"
	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/db"
	"github.com/booklyapp/bookly/internal/es"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/handlers"
	"github.com/booklyapp/bookly/internal/logging"
	"github.com/booklyapp/bookly/internal/middleware"
	"github.com/booklyapp/bookly/internal/signer"
	"github.com/booklyapp/bookly/internal/token"
	httpserver "github.com/booklyapp/bookly/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(configuration.EMAIL_TOKEN_SECRET, "EMAIL_TOKEN_SECRET")

	logger := logging.New(configuration.LOG_LEVEL)

	gormDB, err := db.Open(context.Background(), configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	bl, err := blocklist.New(configuration.REDIS_ADDR, time.Duration(configuration.RefreshTTLSeconds())*time.Second)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}

	prod := events.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		// Search is degraded without ES, everything else still works.
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	codec := &token.Codec{Secret: []byte(configuration.JWT_SECRET)}
	gate := &middleware.TokenGate{Codec: codec, Blocklist: bl, DB: gormDB}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.Handler()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), echomw.CORS())
	e.Use(middleware.RequestLogger(logger))

	deps := httpserver.Deps{
		Gate: gate,
		AuthHandler: &handlers.AuthHandler{
			DB:         gormDB,
			Codec:      codec,
			Blocklist:  bl,
			Signer:     signer.New(configuration.EMAIL_TOKEN_SECRET),
			Producer:   prod,
			Domain:     configuration.DOMAIN,
			AccessTTL:  time.Duration(configuration.AccessTTLMin) * time.Minute,
			RefreshTTL: time.Duration(configuration.RefreshTTLDays) * 24 * time.Hour,
		},
		BookHandler:   &handlers.BookHandler{DB: gormDB, ES: esClient, Producer: prod},
		ReviewHandler: &handlers.ReviewHandler{DB: gormDB},
		TagHandler:    &handlers.TagHandler{DB: gormDB},
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
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := bl.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
