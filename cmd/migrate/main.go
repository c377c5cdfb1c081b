package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"telegram-credit-ledger/internal/config"
	"telegram-credit-ledger/internal/infra/db"
	"telegram-credit-ledger/internal/infra/logging"
)

const usage = `usage: migrate [-config path] up | down N | status`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "up":
		if err := db.MigrateUp(cfg.Database, logger); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
	case "down":
		if len(args) != 2 {
			flag.Usage()
			os.Exit(2)
		}
		steps, err := strconv.Atoi(args[1])
		if err != nil || steps <= 0 {
			log.Fatalf("down: N must be a positive integer, got %q", args[1])
		}
		if err := db.MigrateDown(cfg.Database, steps); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
	case "status":
	default:
		flag.Usage()
		os.Exit(2)
	}

	v, dirty, err := db.Version(cfg.Database)
	if err != nil {
		log.Fatalf("version: %v", err)
	}
	fmt.Printf("driver=%s version=%d dirty=%t\n", cfg.Database.Driver, v, dirty)
}
