package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/ratelimit"
	"github.com/project-tktt/ms-job-crawler/internal/config"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/logger"
	"github.com/project-tktt/ms-job-crawler/internal/metrics"
	"github.com/project-tktt/ms-job-crawler/internal/module"
	"github.com/project-tktt/ms-job-crawler/internal/module/gupy"
	"github.com/project-tktt/ms-job-crawler/internal/module/hcm"
	"github.com/project-tktt/ms-job-crawler/internal/module/infojobs"
	"github.com/project-tktt/ms-job-crawler/internal/module/orchestrator"
	"github.com/project-tktt/ms-job-crawler/internal/module/portal"
	"github.com/project-tktt/ms-job-crawler/internal/module/worker"
	"github.com/project-tktt/ms-job-crawler/internal/queue"
)

// output is the file written at the end of a run
type output struct {
	RunID       string                      `json:"runId"`
	GeneratedAt time.Time                   `json:"generatedAt"`
	Total       int                         `json:"total"`
	Jobs        []domain.JobRecord          `json:"jobs"`
	Summary     domain.Summary              `json:"summary"`
	Sources     []orchestrator.SourceResult `json:"sources"`
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	v := cfg.Validate()
	for _, w := range v.Warnings {
		log.Warn().Msg(w)
	}
	if !v.OK() {
		return fmt.Errorf("invalid configuration: %v", v.Errors)
	}

	companies, cv, err := config.LoadCompanies(cfg.CompaniesFile)
	if err != nil {
		if cfg.Sources.Gupy.Enabled || cfg.Sources.HCM.Enabled || cfg.Sources.Portal.Enabled {
			log.Warn().Err(err).Msg("companies not loaded, company sources will be empty")
		}
	}
	for _, w := range cv.Warnings {
		log.Warn().Msg(w)
	}
	log.Info().Int("companies", len(companies)).Msg("companies loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		mlog := logger.For("metrics")
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mlog.Error().Err(err).Msg("server stopped")
			}
		}()
		defer srv.Close()
		mlog.Info().Str("addr", cfg.MetricsAddr).Msg("server started")
	}

	limiter := ratelimit.NewHostLimiter(cfg.Crawler.RequestDelay, 1)
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPConfig{
		UserAgent:    cfg.Crawler.UserAgent,
		ProxyURL:     cfg.Crawler.ProxyURL,
		RequestDelay: cfg.Crawler.RequestDelay,
		Timeout:      cfg.Crawler.PageTimeout,
	}, limiter)

	// interactive is the best fetcher available; the HTTP one when the
	// browser is disabled or fails to start
	var interactive fetcher.Fetcher = httpFetcher
	portalFetchers := []fetcher.Fetcher{httpFetcher}
	if cfg.Browser.Enabled {
		browser, err := fetcher.NewBrowserFetcher(fetcher.BrowserConfig{
			Headless:    cfg.Browser.Headless,
			UserAgent:   cfg.Crawler.UserAgent,
			PageTimeout: cfg.Crawler.PageTimeout,
			Install:     cfg.Browser.Install,
		})
		if err != nil {
			log.Warn().Err(err).Msg("browser unavailable, using http fetcher only")
		} else {
			defer browser.Close()
			interactive = browser
			portalFetchers = append(portalFetchers, browser)
		}
	}

	kit := module.NewToolkit(limiter)
	groups := module.Partition(companies, cfg.Sources.HCM.HostPatterns, log)
	sources := buildSources(cfg, kit, groups, interactive, portalFetchers, log)
	if len(sources) == 0 {
		return errors.New("no source to run")
	}

	orch := orchestrator.New(sources, log)
	res, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	path, err := writeOutput(cfg.OutputDir, res)
	if err != nil {
		return err
	}
	log.Info().
		Str("file", path).
		Int("total", res.Summary.Total).
		Int("remote", res.Summary.Remote).
		Msg("results written")

	if cfg.Redis.Addr != "" {
		if err := publish(context.WithoutCancel(ctx), cfg.Redis, res, log); err != nil {
			log.Error().Err(err).Msg("publish to redis failed")
		}
	}
	return nil
}

func buildSources(cfg *config.Config, kit *module.Toolkit, groups map[domain.Source][]domain.Company,
	interactive fetcher.Fetcher, portalFetchers []fetcher.Fetcher, log zerolog.Logger) []module.Source {
	var sources []module.Source
	s := cfg.Sources

	if s.InfoJobs.Enabled {
		sources = append(sources, infojobs.NewSource(interactive, interactive, kit, infojobs.Config{
			URL:         s.InfoJobs.URL,
			MaxScrolls:  s.InfoJobs.MaxScrolls,
			SettleDelay: cfg.Crawler.SettleDelay,
			Worker: worker.Config{
				Concurrency:   cfg.Worker.Concurrency,
				PerURLTimeout: cfg.Worker.PerURLTimeout,
			},
		}, log))
	}
	if s.Gupy.Enabled && len(groups[domain.SourceGupy]) > 0 {
		sources = append(sources, gupy.NewSource(interactive, groups[domain.SourceGupy], kit, gupy.Config{
			MaxPages:    s.Gupy.MaxPages,
			WaitTimeout: cfg.Crawler.WaitTimeout,
			SettleDelay: cfg.Crawler.SettleDelay,
		}, log))
	}
	if s.Portal.Enabled && len(groups[domain.SourcePortal]) > 0 {
		sources = append(sources, portal.NewSource(portalFetchers, groups[domain.SourcePortal], kit, portal.Config{
			MaxPages:    s.Portal.MaxPages,
			WaitTimeout: cfg.Crawler.WaitTimeout,
			SettleDelay: cfg.Crawler.SettleDelay,
		}, log))
	}
	if s.HCM.Enabled && len(groups[domain.SourceHCM]) > 0 {
		// the fallback renders the same portal and tags records as hcm
		fallback := portal.NewSource(portalFetchers, nil, kit, portal.Config{
			MaxPages:    s.HCM.MaxPages,
			WaitTimeout: cfg.Crawler.WaitTimeout,
			SettleDelay: cfg.Crawler.SettleDelay,
			Source:      domain.SourceHCM,
		}, log)
		sources = append(sources, hcm.NewSource(groups[domain.SourceHCM], hcm.Config{
			PageSize:   s.HCM.PageSize,
			MaxPages:   s.HCM.MaxPages,
			MaxRetries: cfg.Crawler.MaxRetries,
			UserAgent:  cfg.Crawler.UserAgent,
			Timeout:    cfg.Crawler.PageTimeout,
		}, hcm.Deps{
			Cleaner:    kit.Cleaner,
			Normalizer: kit.Normalizer,
			Classifier: kit.Classifier,
			Limiter:    kit.Limiter,
		}, func(c domain.Company, url string) hcm.Fallback {
			return func(ctx context.Context) ([]domain.JobRecord, error) {
				return fallback.ExtractPortal(ctx, c, url)
			}
		}, log))
	}
	return sources
}

func writeOutput(dir string, res *orchestrator.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(output{
		RunID:       res.RunID,
		GeneratedAt: res.GeneratedAt,
		Total:       len(res.Jobs),
		Jobs:        res.Jobs,
		Summary:     res.Summary,
		Sources:     res.Sources,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	path := filepath.Join(dir, "jobs_"+res.GeneratedAt.Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

func publish(ctx context.Context, cfg config.RedisConfig, res *orchestrator.Result, log zerolog.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	pub := queue.NewPublisher(rdb, cfg.JobQueue)
	if err := pub.PublishBatch(ctx, res.RunID, res.Jobs); err != nil {
		return err
	}
	if err := pub.PublishSummary(ctx, res.RunID, res.Summary); err != nil {
		return err
	}
	if n, err := pub.QueueLength(ctx); err == nil {
		log.Info().Str("queue", cfg.JobQueue).Int64("length", n).Msg("results published")
	}
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
