package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"palmer/internal/hackathon"
	"palmer/internal/transfer"
	"palmer/pkg/database"
	"palmer/pkg/logging"
	"palmer/pkg/utils"
)

func main() {
	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many hackathons to export (0 for all)")
	)
	flag.Parse()

	log := logging.Must("info", "console")
	defer func() { _ = log.Sync() }()

	if err := run(*outPath, *limit, log); err != nil {
		log.Error("export mirror failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(outPath string, limit int, log *zap.Logger) error {
	cfg, err := utils.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
	if limit > 0 && len(hs) > limit {
		hs = hs[:limit]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	doc := transfer.BuildMirror(hs)
	if err := transfer.WriteMirror(outPath, doc); err != nil {
		return err
	}

	log.Info("exported mirror", zap.Int("hackathons", len(doc.Hackathons)), zap.String("out", outPath))
	return nil
}
