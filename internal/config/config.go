package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for one extraction run
type Config struct {
	Redis         RedisConfig
	Crawler       CrawlerConfig
	Worker        WorkerConfig
	Browser       BrowserConfig
	Sources       SourcesConfig
	OutputDir     string
	CompaniesFile string
	MetricsAddr   string
	LogLevel      string
}

type RedisConfig struct {
	// Empty address disables the Redis sink
	Addr     string
	Password string
	DB       int
	JobQueue string
}

type CrawlerConfig struct {
	// Rate limiting
	RequestDelay time.Duration
	MaxRetries   int
	ProxyURL     string
	UserAgent    string
	// Bounds for browser waits
	PageTimeout time.Duration
	WaitTimeout time.Duration
	SettleDelay time.Duration
}

type WorkerConfig struct {
	// Number of concurrent detail workers, 0 derives it from CPU and memory
	Concurrency   int
	PerURLTimeout time.Duration
}

type BrowserConfig struct {
	Enabled  bool
	Headless bool
	Install  bool
}

type SourcesConfig struct {
	InfoJobs InfoJobsConfig
	Gupy     PagedSourceConfig
	HCM      HCMConfig
	Portal   PagedSourceConfig
}

type InfoJobsConfig struct {
	Enabled    bool
	URL        string
	MaxScrolls int
}

type PagedSourceConfig struct {
	Enabled  bool
	MaxPages int
}

type HCMConfig struct {
	Enabled  bool
	MaxPages int
	PageSize int
	// Portal URLs containing any of these substrings are routed to the API client
	HostPatterns []string
}

// Load creates a Config from environment variables with defaults
func Load() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			JobQueue: getEnv("REDIS_JOB_QUEUE", "jobs:ms"),
		},
		Crawler: CrawlerConfig{
			RequestDelay: getEnvDuration("CRAWLER_DELAY", time.Second),
			MaxRetries:   getEnvInt("CRAWLER_MAX_RETRIES", 3),
			ProxyURL:     getEnv("PROXY_URL", ""),
			UserAgent:    getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			PageTimeout:  getEnvDuration("PAGE_TIMEOUT", 30*time.Second),
			WaitTimeout:  getEnvDuration("WAIT_TIMEOUT", 10*time.Second),
			SettleDelay:  getEnvDuration("SCROLL_SETTLE_DELAY", 4*time.Second),
		},
		Worker: WorkerConfig{
			Concurrency:   getEnvInt("WORKER_CONCURRENCY", 0),
			PerURLTimeout: getEnvDuration("WORKER_URL_TIMEOUT", 60*time.Second),
		},
		Browser: BrowserConfig{
			Enabled:  getEnvBool("BROWSER_ENABLED", true),
			Headless: getEnvBool("BROWSER_HEADLESS", true),
			Install:  getEnvBool("BROWSER_INSTALL", false),
		},
		Sources: SourcesConfig{
			InfoJobs: InfoJobsConfig{
				Enabled:    getEnvBool("INFOJOBS_ENABLED", true),
				URL:        getEnv("INFOJOBS_URL", "https://www.infojobs.com.br/empregos.aspx?provincia=175"),
				MaxScrolls: getEnvInt("INFOJOBS_MAX_SCROLLS", 50),
			},
			Gupy: PagedSourceConfig{
				Enabled:  getEnvBool("GUPY_ENABLED", true),
				MaxPages: getEnvInt("GUPY_MAX_PAGES", 20),
			},
			HCM: HCMConfig{
				Enabled:      getEnvBool("HCM_ENABLED", true),
				MaxPages:     getEnvInt("HCM_MAX_PAGES", 200),
				PageSize:     getEnvInt("HCM_PAGE_SIZE", 50),
				HostPatterns: getEnvList("HCM_HOST_PATTERNS", []string{"senior.com.br", "/hcm", "recrutamento.", "vagas.solides", "pandape"}),
			},
			Portal: PagedSourceConfig{
				Enabled:  getEnvBool("PORTAL_ENABLED", true),
				MaxPages: getEnvInt("PORTAL_MAX_PAGES", 10),
			},
		},
		OutputDir:     getEnv("OUTPUT_DIR", "output"),
		CompaniesFile: getEnv("COMPANIES_FILE", "companies.yaml"),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("1500ms") or plain milliseconds
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
