package main

import (
	"context"
	"flag"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"palmer/internal/hackathon"
	"palmer/internal/scraper"
	"palmer/internal/transfer"
	"palmer/pkg/database"
	"palmer/pkg/logging"
	"palmer/pkg/utils"
)

func main() {
	inPath := flag.String("in", "data/hackathons.csv", "input CSV path")
	flag.Parse()

	log := logging.Must("info", "console")
	defer func() { _ = log.Sync() }()

	if err := run(*inPath, log); err != nil {
		log.Error("import csv failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(inPath string, log *zap.Logger) error {
	cfg, err := utils.LoadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(inPath)
	if err != nil {
		return eris.Wrap(err, "open input")
	}
	defer f.Close()

	recs, skipped, err := transfer.ReadCSV(f)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	res, err := scraper.NewReconciler(hackathon.NewRepo(db), log).Reconcile(context.Background(), slices.Values(recs))
	if err != nil {
		return err
	}

	log.Info("imported hackathons",
		zap.String("in", inPath),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", skipped))
	return nil
}
