package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logging"
	"github.com/booklyapp/bookly/internal/mail"
)

// mailworker drains mail_events and delivers over SMTP, out of band from the
// HTTP request path.
func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.KAFKA_ADDRESS, "KAFKA_ADDRESS")
	config.MustNonEmpty(configuration.MAIL_SERVER, "MAIL_SERVER")
	config.MustNonEmpty(configuration.MAIL_FROM, "MAIL_FROM")

	logger := logging.New(configuration.LOG_LEVEL)

	sender := mail.NewSender(
		configuration.MAIL_SERVER,
		configuration.MAIL_PORT,
		configuration.MAIL_USERNAME,
		configuration.MAIL_PASSWORD,
		configuration.MAIL_FROM,
		configuration.MAIL_FROM_NAME,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down...")
		cancel()
	}()

	logger.Info("mailworker started", "broker", configuration.KAFKA_ADDRESS)
	if err := events.RunMailConsumer(ctx, []string{configuration.KAFKA_ADDRESS}, logger, sender.Send); err != nil {
		log.Fatalf("mail consumer error: %v", err)
	}
	log.Println("shutdown complete")
}
