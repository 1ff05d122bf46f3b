// Command seed fills the ledger store with demo identities and a
// backdated history of deposits, withdrawals and transfers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/storage"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	migrate := flag.Bool("migrate", false, "apply the database schema before seeding")
	reset := flag.Bool("reset", false, "delete existing non-system identities first")
	users := flag.Int("users", -1, "identities to create (default from seed.users)")
	perUser := flag.Int("per-user", -1, "records per identity (default from seed.transactions_per_user)")
	since := flag.String("since", "", "earliest record date, YYYY-MM-DD (default from seed.since)")
	seed := flag.Int64("seed", 0, "random seed (default from seed.random_seed)")
	password := flag.String("password", "", "password of every seeded identity (default from seed.password)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	opts := ports.SeedOptions{
		Users:               cfg.Seed.Users,
		TransactionsPerUser: cfg.Seed.TransactionsPerUser,
		Since:               cfg.Seed.Since,
		Seed:                cfg.Seed.RandomSeed,
		Reset:               *reset,
		Password:            cfg.Seed.Password,
	}
	if *users >= 0 {
		opts.Users = *users
	}
	if *perUser >= 0 {
		opts.TransactionsPerUser = *perUser
	}
	if *since != "" {
		t, err := time.ParseInLocation("2006-01-02", *since, time.UTC)
		if err != nil {
			log.Fatal().Err(err).Str("since", *since).Msg("Invalid --since date")
		}
		opts.Since = t
	}
	if flag.CommandLine.Changed("seed") {
		opts.Seed = *seed
	}
	if *password != "" {
		opts.Password = *password
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg, *migrate, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer backend.Close()

	policy := service.PolicyFromConfig(cfg.Ledger)
	bonusSvc := service.NewBonusService(backend.Users, backend.Wallets, backend.Transactions, backend.Transactor, policy, nil, logger.Component(log, "bonus"))
	seeder := service.NewSeedService(
		backend.Users,
		backend.Wallets,
		backend.Transactions,
		backend.Transactor,
		bonusSvc,
		service.NewArgon2HashService(),
		policy,
		nil,
		logger.Component(log, "seed"),
	)

	started := time.Now()
	report, err := seeder.Run(ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("Seeding failed, nothing was written")
		backend.Close()
		os.Exit(1)
	}

	log.Info().
		Str("storage", backend.Driver).
		Int("users_created", report.UsersCreated).
		Int64("records_written", report.RecordsWritten).
		Int("records_skipped", report.RecordsSkipped).
		Dur("took", time.Since(started)).
		Msg("Seeding complete")
}
