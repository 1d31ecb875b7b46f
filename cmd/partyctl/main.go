package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/rooftop/internal/admin"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/config"
	"github.com/dmitrijs2005/rooftop/internal/server/notify"
	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/dmitrijs2005/rooftop/internal/server/shared/db"
	"github.com/dmitrijs2005/rooftop/internal/timex"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if cfg.DatabaseDSN == "" {
		log.Fatalf("partyctl needs a database DSN (-d or ROOFTOP_DATABASE_DSN)")
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	clock := timex.SystemClock{}

	store, err := db.Open(ctx, cfg.DatabaseDSN, clock)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	issuer := auth.NewIssuer([]byte(cfg.SecretKey), clock)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	users := services.NewUserService(store.Storage, issuer, hasher, notify.NewLogNotifier(logger), nil, nil, cfg, logger)
	sessions := services.NewSessionRegistry(store.Storage, issuer, clock, cfg.SessionInactivityWindow, logger)

	app := admin.NewApp(users, sessions, os.Stdout)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		store.Close()
		log.Fatalf("%v", err)
	}

}
