// cmd/mailcheck/main.go
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/pkg/email"
	"github.com/your-org/giftcard-backend/internal/pkg/logger"
)

// Sends one message through the configured provider so delivery settings
// can be checked before real gift codes go out.
func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg.Logging)

	if *to == "" {
		log.Fatal("Usage: mailcheck -to someone@example.com")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := email.NewEmailService(cfg, log)
	msg := &email.Email{
		To:          []string{*to},
		Subject:     "Test email from " + cfg.Company.Name,
		HTMLContent: "<h1>Success!</h1><p>Gift delivery is configured.</p>",
		Type:        "test",
	}
	if err := svc.SendEmail(ctx, msg); err != nil {
		log.WithError(err).Fatal("Send failed")
	}

	log.WithFields(logrus.Fields{"provider": cfg.Email.Provider, "to": *to}).Info("Email sent")
}
