package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"palmer/internal/hackathon"
	"palmer/internal/transfer"
	"palmer/pkg/database"
	"palmer/pkg/logging"
	"palmer/pkg/utils"
)

func main() {
	outPath := flag.String("out", "data/hackathons.csv", "output CSV path")
	flag.Parse()

	log := logging.Must("info", "console")
	defer func() { _ = log.Sync() }()

	if err := run(*outPath, log); err != nil {
		log.Error("export csv failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(outPath string, log *zap.Logger) error {
	cfg, err := utils.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	hs, err := hackathon.NewRepo(db).List(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return eris.Wrap(err, "mkdir")
	}
	f, err := os.Create(outPath)
	if err != nil {
		return eris.Wrap(err, "create output")
	}
	defer f.Close()

	if err := transfer.WriteCSV(f, hs); err != nil {
		return err
	}

	log.Info("exported hackathons", zap.Int("rows", len(hs)), zap.String("out", outPath))
	return nil
}
