package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"palmer/internal/hackathon"
	"palmer/internal/scraper"
	"palmer/pkg/database"
	"palmer/pkg/logging"
	"palmer/pkg/utils"
)

func main() {
	var (
		sources = flag.String("sources", "", "comma separated kind=url list (overrides PALMER_SOURCES)")
		mode    = flag.String("mode", "", "fetch mode: http or browser (overrides PALMER_FETCH_MODE)")
		sample  = flag.Int("sample", 3, "log this many extracted records per source")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logging.Must("info", "console").Fatal("load config", zap.Error(err))
	}
	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if *sources != "" {
		if cfg.Sources, err = utils.ParseSources(*sources); err != nil {
			log.Fatal("parse -sources", zap.Error(err))
		}
	}
	if *mode != "" {
		cfg.FetchMode = *mode
	}

	if err := run(cfg, *sample, log); err != nil {
		log.Error("scrape failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg utils.Config, sample int, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return eris.Wrap(err, "db migrate")
	}

	srcs := make([]scraper.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		kind, err := scraper.ParseKind(sc.Kind)
		if err != nil {
			return err
		}
		srcs = append(srcs, scraper.NewSource(kind, sc.URL))
	}

	var fetcher scraper.Fetcher
	switch cfg.FetchMode {
	case "browser":
		fetcher = scraper.NewBrowserFetcher(cfg.FetchTimeout, cfg.UserAgent)
	case "http", "":
		fetcher = scraper.NewHTTPFetcher(cfg.FetchTimeout, cfg.UserAgent)
	default:
		return eris.Errorf("unknown fetch mode %q", cfg.FetchMode)
	}

	repo := hackathon.NewRepo(db)
	runner := scraper.NewRunner(fetcher, scraper.NewReconciler(repo, log), repo, log)
	runner.SampleSize = sample

	runs, err := runner.RunAll(ctx, srcs)
	for _, r := range runs {
		log.Info("run summary",
			zap.String("run_id", r.ID),
			zap.String("source", r.Source),
			zap.String("status", r.Status),
			zap.Int("created", r.Created),
			zap.Int("updated", r.Updated),
			zap.Int("skipped", r.Skipped))
	}
	return err
}
