package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/app/wallet"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/nexus"
)

type config struct {
	DB database.Config
}

func main() {
	userFlag := flag.String("user", "", "audit a single account by id")
	flag.Parse()

	log := logger.NewZeroLogger(os.Stderr, logger.LevelWarn, logger.Fields{"service": "marketcore-audit"})

	_ = godotenv.Load()
	ctx := context.Background()

	var cfg config
	if err := nexus.NewLoader().Load(ctx, &cfg); err != nil {
		log.Fatal(err, map[string]interface{}{"op": "load configuration"})
	}

	db, err := database.New(&cfg.DB)
	if err != nil {
		log.Fatal(err, map[string]interface{}{"op": "open database"})
	}

	svc := wallet.Build(wallet.Dependencies{DB: db, Logger: log})

	var reports []*ledger.AuditReport
	if *userFlag != "" {
		id, err := uuid.Parse(*userFlag)
		if err != nil {
			log.Fatal(fmt.Errorf("invalid -user: %w", err), nil)
		}
		report, err := svc.Audit(ctx, id)
		if err != nil {
			log.Fatal(err, map[string]interface{}{"user_id": id.String()})
		}
		reports = append(reports, report)
	} else {
		reports, err = svc.AuditAll(ctx)
		if err != nil {
			log.Fatal(err, map[string]interface{}{"op": "audit all"})
		}
	}

	if mismatches := render(os.Stdout, reports); mismatches > 0 {
		os.Exit(1)
	}
}
