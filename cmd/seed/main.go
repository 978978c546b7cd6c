// Package main provides a CLI tool for seeding demo invoices.
// Numbers are assigned by the invoice service, so the seeded series are valid.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"facturier/internal/core/numerator"
	"facturier/internal/domain/auth"
	"facturier/internal/domain/invoice"
	"facturier/internal/domain/numbering"
	"facturier/internal/infrastructure/storage/postgres"
	"facturier/internal/infrastructure/storage/postgres/invoice_repo"
	"facturier/pkg/logger"
)

var demoClients = []string{
	"Boulangerie Martin",
	"Atelier Durand",
	"Librairie Moreau",
	"Garage Lefebvre",
	"Cabinet Rousseau",
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	userID := getEnv("SEED_USER_ID", "demo-user")
	count := getEnvInt("SEED_INVOICES", 10)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.UpMigrations(ctx, dbURL); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	txm := postgres.NewTxManager(pool)
	repo := invoice_repo.NewInvoiceRepo(txm)
	clock := func() time.Time { return time.Now().UTC() }
	invoices := invoice.NewService(invoice.ServiceConfig{
		Repo:      repo,
		Numbering: numbering.NewService(invoice.NewNumberingSource(repo), numbering.WithClock(clock)),
		Locker:    postgres.NewAdvisoryLocker(pool),
		TxManager: txm,
		Now:       clock,
	})

	if err := seedInvoices(ctx, invoices, userID, count); err != nil {
		log.Fatalw("failed to seed invoices", "error", err)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtService := auth.NewJWTService(auth.DefaultJWTConfig(secret))
		token, expiresAt, err := jwtService.GenerateAccessToken(userID, userID+"@example.fr", nil)
		if err != nil {
			log.Fatalw("failed to sign token", "error", err)
		}
		log.Infow("access token for seeded user", "user_id", userID, "expires_at", expiresAt)
		fmt.Println(token)
	}
}

// seedInvoices creates count invoices for userID, alternating formats.
func seedInvoices(ctx context.Context, svc *invoice.Service, userID string, count int) error {
	for i := 0; i < count; i++ {
		format := numerator.FormatFrench
		if i%3 == 2 {
			format = numerator.FormatStandard
		}
		inv := &invoice.Invoice{
			UserID:          userID,
			NumberingFormat: format,
			ClientName:      demoClients[i%len(demoClients)],
			TotalAmount:     decimal.NewFromInt(int64(100 + 25*i)),
		}
		if err := svc.Create(ctx, inv); err != nil {
			return fmt.Errorf("invoice %d: %w", i+1, err)
		}
		logger.Info(ctx, "seeded invoice", "number", inv.Number, "client", inv.ClientName)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
