package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"telegram-credit-ledger/internal/config"
	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/infra/db"
	"telegram-credit-ledger/internal/infra/logging"
	"telegram-credit-ledger/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	code := flag.String("code", "", "code to create; empty seeds the sample set")
	amount := flag.Int64("amount", 100, "credits granted per claim")
	uses := flag.Int("uses", 10, "maximum number of claims")
	expiry := flag.String("expiry", "", `lifetime such as "24h" or "1h30m"; empty never expires`)
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()

	codeUC := usecase.NewCodeUseCase(store.Codes, store.Redemptions, store.TM, cfg.Ledger.GeneratedCodePrefix, logger, true)

	seed := []model.CodeSpec{
		{Code: "WELCOME10", Amount: 10, MaxUses: 1000},
		{Code: "FLASH100", Amount: 100, MaxUses: 1, ExpiryMinutes: 15},
		{Code: "BETA50", Amount: 50, MaxUses: 100, ExpiryMinutes: 7 * 24 * 60},
	}
	if *code != "" {
		mins, _ := model.ParseDuration(*expiry)
		seed = []model.CodeSpec{{Code: *code, Amount: *amount, MaxUses: *uses, ExpiryMinutes: mins}}
	}

	for _, spec := range seed {
		c, err := codeUC.Create(ctx, spec)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			fmt.Printf("skipped: %s already exists\n", model.NormalizeCode(spec.Code))
		case err != nil:
			log.Fatalf("create code %q: %v", spec.Code, err)
		default:
			exp := "never"
			if at, ok := c.ExpiresAt(); ok {
				exp = at.Format(time.RFC3339)
			}
			fmt.Printf("seeded: %s (amount=%d, uses=%d, expires=%s)\n", c.Code, c.Amount, c.MaxUses, exp)
		}
	}

	fmt.Println("Seeding complete.")
}
