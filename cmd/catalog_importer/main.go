package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	trustcade "github.com/Ashenafi-pixel/trustcade-rewards"
	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/filestore"
	"github.com/Ashenafi-pixel/trustcade-rewards/pgstore"
)

// The prize file is a JSON array of prizes. Example:
//
//	[
//	  {"id": "1", "name": "iPhone 17 Pro", "category": "electronics", "value": 1299, "weight": 100, "stock": 5},
//	  {"id": "4", "name": "Try Again", "category": "none", "value": 0, "probability": 40, "stock": null}
//	]
func main() {
	file := flag.String("file", "", "Path to a JSON prize list")
	dataDir := flag.String("data-dir", "", "Data directory for the file store (default TRUSTCADE_DATA_DIR or data)")
	dryRun := flag.Bool("dry-run", false, "Validate the file without writing it")
	flag.Parse()

	_ = godotenv.Load(".env")

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing required -file argument")
		os.Exit(1)
	}
	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("TRUSTCADE_DATA_DIR")
	}

	if err := run(context.Background(), *file, dir, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path, dataDir string, dryRun bool) error {
	prizes, err := readPrizes(path)
	if err != nil {
		return err
	}
	// Validate before touching any store.
	if _, err := catalog.New(prizes); err != nil {
		return err
	}
	if dryRun {
		fmt.Printf("%s: %d prizes OK\n", path, len(prizes))
		return nil
	}

	store, where, err := openStore(ctx, dataDir)
	if err != nil {
		return err
	}
	cat, err := catalog.Open(ctx, store, prizes)
	if err != nil {
		return err
	}
	if err := cat.Replace(ctx, prizes); err != nil {
		return fmt.Errorf("save prizes: %w", err)
	}
	fmt.Printf("Imported %d prizes into %s\n", len(prizes), where)
	return nil
}

func openStore(ctx context.Context, dataDir string) (catalog.Store, string, error) {
	db, err := trustcade.GetDB()
	if err != nil {
		return nil, "", fmt.Errorf("connect db: %w", err)
	}
	if db == nil {
		return filestore.New(dataDir), "file store", nil
	}
	if err := pgstore.Migrate(ctx, db); err != nil {
		return nil, "", fmt.Errorf("migrate: %w", err)
	}
	return pgstore.NewCatalogStore(db), "Postgres", nil
}

func readPrizes(path string) ([]catalog.Prize, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var prizes []catalog.Prize
	if err := json.Unmarshal(data, &prizes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(prizes) == 0 {
		return nil, fmt.Errorf("%s has no prizes", path)
	}
	return prizes, nil
}
