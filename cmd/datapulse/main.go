package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/avolosh/datapulse/internal/config"
	"github.com/avolosh/datapulse/internal/logging"
	"github.com/avolosh/datapulse/internal/pipeline"
	"github.com/avolosh/datapulse/internal/processor"
	"github.com/avolosh/datapulse/internal/report"
	"github.com/avolosh/datapulse/internal/scheduler"
	"github.com/avolosh/datapulse/internal/source"
	"github.com/avolosh/datapulse/internal/staging"
)

const usage = `usage: datapulse <command>

commands:
  collect   fetch all configured sources and stage raw payloads
  process   normalize the latest staged payloads into processed CSVs
  report    rewrite the managed sections of the report document
  run       collect, process, and report in sequence
  schedule  run the full pipeline on RUN_INTERVAL until interrupted
`

func main() {
	logging.Init(logging.FromEnv())
	log := logging.Get()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Shared HTTP client for outbound source calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	st, err := staging.NewStore(cfg.RawDir())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open staging store")
	}

	sources := buildSources(cfg, httpClient, log)
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}

	collector := pipeline.NewCollector(sources, st, log)
	proc := processor.New(st, cfg.ProcessedDir(), cfg.ArchiveDir(), cfg.ManifestPath(), log)
	rep := report.New(cfg.ManifestPath(), cfg.ReportPath, log)
	pipe := pipeline.New(collector, proc, rep, names, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd {
	case "collect":
		runErr = pipe.Collect(ctx)
	case "process":
		runErr = pipe.Process()
	case "report":
		runErr = pipe.Report()
	case "run":
		runErr = pipe.Run(ctx)
	case "schedule":
		sched := scheduler.New(pipe, cfg.RunInterval, log)
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		log.Info().Dur("interval", cfg.RunInterval).Msg("scheduler started")
		<-ctx.Done()
		sched.Stop()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if runErr != nil {
		log.Error().Err(runErr).Str("command", cmd).Msg("command failed")
		os.Exit(1)
	}
}

// buildSources assembles the configured sources: trending repositories,
// one weather source, and optionally crypto quotes.
func buildSources(cfg *config.AppConfig, client *http.Client, log *zerolog.Logger) []source.Source {
	sources := []source.Source{
		source.NewGitHubSource(client, cfg.GitHubToken, cfg.TrendingMinStars, cfg.TrendingLimit),
	}

	switch cfg.WeatherSource {
	case config.WeatherSourceOpenMeteo:
		sources = append(sources, source.NewOpenMeteoSource(client, cfg.WeatherCities, cfg.GeocoderAPIKey, log))
	default:
		sources = append(sources, source.NewWttrSource(client, cfg.WeatherCities, log))
	}

	if len(cfg.CryptoCoins) > 0 {
		sources = append(sources, source.NewCoinGeckoSource(client, cfg.CryptoCoins))
	}

	return sources
}
