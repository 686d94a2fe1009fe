package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	trustcade "github.com/Ashenafi-pixel/trustcade-rewards"
	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/config"
	"github.com/Ashenafi-pixel/trustcade-rewards/engine"
	"github.com/Ashenafi-pixel/trustcade-rewards/filestore"
	"github.com/Ashenafi-pixel/trustcade-rewards/ledger"
	"github.com/Ashenafi-pixel/trustcade-rewards/logger"
	"github.com/Ashenafi-pixel/trustcade-rewards/metrics"
	"github.com/Ashenafi-pixel/trustcade-rewards/notify"
	"github.com/Ashenafi-pixel/trustcade-rewards/participant"
	"github.com/Ashenafi-pixel/trustcade-rewards/pgstore"
	"github.com/Ashenafi-pixel/trustcade-rewards/server"
)

func main() {
	// Load .env so DATABASE_URL is set: cwd .env or project root .env/.env.local
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")
	cfg := config.Load()
	log := logger.New("trustcade")

	if err := run(cfg, log); err != nil {
		log.Entry().WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()
	db, err := trustcade.GetDB()
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}

	var (
		catStore catalog.Store
		ledStore ledger.Store
	)
	if db != nil {
		if err := pgstore.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		catStore, ledStore = pgstore.NewCatalogStore(db), pgstore.NewLedgerStore(db)
		log.Entry().Info("using Postgres stores")
	} else {
		fs := filestore.New(cfg.DataDir)
		catStore, ledStore = fs, fs
		log.Entry().WithField("data_dir", cfg.DataDir).Info("DATABASE_URL not set, using file store")
	}

	seed, err := seedPrizes(cfg.CatalogFile)
	if err != nil {
		return err
	}
	cat, err := catalog.Open(ctx, catStore, seed)
	if err != nil {
		return err
	}
	opts := ledger.DefaultOptions()
	opts.Cooldown = cfg.SpinCooldown
	opts.VerificationThreshold = cfg.VerificationThreshold
	opts.ClaimCodePrefix = cfg.ClaimCodePrefix
	led, err := ledger.Open(ctx, ledStore, opts)
	if err != nil {
		return err
	}
	participants, err := participant.NewRegistry(ctx, db)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}

	m := metrics.New()
	engOpts := engine.Options{
		LockTimeout:  cfg.LockTimeout,
		Participants: participants,
		Metrics:      m,
		Logger:       log,
	}
	if cfg.NotifyEndpoint != "" {
		engOpts.Notifier = notify.NewClient(cfg.NotifyEndpoint, cfg.NotifySecret)
	}
	eng := engine.New(cat, led, engOpts)
	defer eng.Close()

	return server.New(cfg, eng, m, log).Run()
}

func seedPrizes(path string) ([]catalog.Prize, error) {
	if path == "" {
		return catalog.DefaultPrizes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var prizes []catalog.Prize
	if err := json.Unmarshal(data, &prizes); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return prizes, nil
}
