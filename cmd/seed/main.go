// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	productIDs, err := seedProducts(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}

	if os.Getenv("SEED_OPENING_STOCK") != "false" {
		if err := seedOpeningStock(ctx, pool, log, productIDs); err != nil {
			log.Fatalw("failed to seed opening stock", "error", err)
		}
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		printDevToken(log, secret)
	}

	log.Info("seeding completed successfully")
}

type productSeed struct {
	code        string
	name        string
	localName   string
	country     string
	vendor      string
	pType       string
	unitWeight  string
	packingSize string
	wip         bool
	accountCode string
}

func seedProducts(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (map[string]id.ID, error) {
	products := []productSeed{
		{"FD-0001", "Dried Shiitake Whole", "干香菇", "CN", "Golden Harvest", "dried", "0.5000", "20/carton", false, "6101"},
		{"FD-0002", "Dried Shiitake Sliced", "香菇片", "CN", "Golden Harvest", "dried", "0.4500", "20/carton", false, "6101"},
		{"FD-0003", "Rice Vermicelli 400g", "米粉", "TH", "Lotus Foods", "noodle", "0.4000", "30/carton", false, "6102"},
		{"FD-0004", "Soy Sauce 500ml", "酱油", "CN", "Pearl River", "sauce", "0.9500", "12/carton", false, "6103"},
		{"FD-0005", "Frozen Dumpling Mix", "饺子混合", "CN", "Northern Kitchen", "frozen", "1.0000", "10/carton", true, "6104"},
		{"FD-0006", "Packed Dumplings 500g", "袋装饺子", "CN", "Northern Kitchen", "frozen", "0.5200", "16/carton", false, "6104"},
	}

	ids := make(map[string]id.ID, len(products))
	for _, p := range products {
		pid := id.New()
		weight, err := decimal.NewFromString(p.unitWeight)
		if err != nil {
			return nil, fmt.Errorf("parse unit weight for %s: %w", p.code, err)
		}

		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_products (
				id, code, name, local_name, country, vendor, type,
				unit_weight, packing_size, wip, status, account_code,
				version, created_at, updated_at, created_by, updated_by
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active', $11, 1, NOW(), NOW(), 'seed', 'seed')
			ON CONFLICT (code) DO NOTHING
		`, pid, p.code, p.name, p.localName, p.country, p.vendor, p.pType,
			weight, p.packingSize, p.wip, p.accountCode)
		if err != nil {
			return nil, fmt.Errorf("insert product %s: %w", p.code, err)
		}

		if tag.RowsAffected() == 0 {
			if err := pool.Pool.QueryRow(ctx,
				`SELECT id FROM cat_products WHERE code = $1`, p.code,
			).Scan(&pid); err != nil {
				return nil, fmt.Errorf("fetch existing product %s: %w", p.code, err)
			}
			log.Infow("product already exists", "code", p.code)
		} else {
			log.Infow("product created", "code", p.code, "name", p.name)
		}
		ids[p.code] = pid
	}

	return ids, nil
}

func seedOpeningStock(ctx context.Context, pool *postgres.Pool, log *logger.Logger, productIDs map[string]id.ID) error {
	// Quantities are scaled by 1e4 in the register.
	type stockSeed struct {
		code      string
		warehouse string
		quantity  int64
	}

	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	seeds := []stockSeed{
		{"FD-0001", "export", 1200_0000},
		{"FD-0001", "local", 300_0000},
		{"FD-0002", "export", 800_0000},
		{"FD-0003", "export", 2400_0000},
		{"FD-0004", "local", 600_0000},
		{"FD-0005", "local", 150_0000},
		{"FD-0006", "export", 950_0000},
	}

	for _, s := range seeds {
		pid, ok := productIDs[s.code]
		if !ok {
			continue
		}

		var exists bool
		err := pool.Pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM ledger_transactions
				WHERE product_id = $1 AND warehouse = $2 AND reference_no = 'SEED'
			)`, pid, s.warehouse,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check seed stock for %s: %w", s.code, err)
		}
		if exists {
			log.Infow("opening stock already seeded", "code", s.code, "warehouse", s.warehouse)
			continue
		}

		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO ledger_transactions (
				id, product_id, warehouse, type, quantity,
				date, batch_no, reference_no, notes, created_by, created_at
			)
			VALUES ($1, $2, $3, 'IN', $4, $5, 'SEED-BATCH', 'SEED', 'seeded opening stock', 'seed', NOW())
		`, id.New(), pid, s.warehouse, s.quantity, firstOfMonth)
		if err != nil {
			return fmt.Errorf("insert seed stock for %s: %w", s.code, err)
		}

		log.Infow("opening stock created",
			"code", s.code,
			"warehouse", s.warehouse,
			"quantity", s.quantity,
		)
	}

	return nil
}

// printDevToken issues a short-lived all-permission token for local testing.
func printDevToken(log *logger.Logger, secret string) {
	validator := security.NewJWTValidator([]byte(secret))
	token, err := validator.IssueToken(&security.Actor{
		ID:      "seed-admin",
		Name:    "Seed Admin",
		IsAdmin: true,
	}, 24*time.Hour)
	if err != nil {
		log.Warnw("failed to issue dev token", "error", err)
		return
	}
	log.Infow("dev token issued (valid 24h)", "token", token)
}
