package storecheck

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Constants defining the fleet protocol
const (
	RedisPrefix      = "ISOAUTOMATE:"
	WorkersSet       = RedisPrefix + "workers"
	ScreenshotFolder = "screenshots"
)

const (
	DefaultBaseURL           = "http://localhost:3000"
	DefaultStepTimeout       = 10 * time.Second
	DefaultNavigationTimeout = 60 * time.Second
	DefaultBrowserType       = "chrome"
	DefaultRedisHost         = "localhost"
	DefaultRedisPort         = "6379"
)

// Driver names accepted by Config.Driver.
const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
	DriverChromedp   = "chromedp"
	DriverFleet      = "fleet"
)

// Credential sets accepted by Config.CredentialSet.
const (
	CredentialsGenerated = "generated"
	CredentialsEnv       = "env"
)

// Config holds everything a verification run takes from outside.
type Config struct {
	BaseURL           string
	OutputDir         string
	Driver            string
	CredentialSet     string
	FlowsFile         string
	Headless          bool
	StepTimeout       time.Duration
	NavigationTimeout time.Duration

	// Fleet driver
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	BrowserType   string

	EnvFile string // Custom path to .env file
}

// DefaultConfig returns a local Playwright setup against a dev server.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		OutputDir:         ScreenshotFolder,
		Driver:            DriverPlaywright,
		CredentialSet:     CredentialsGenerated,
		Headless:          true,
		StepTimeout:       DefaultStepTimeout,
		NavigationTimeout: DefaultNavigationTimeout,
		RedisHost:         DefaultRedisHost,
		RedisPort:         DefaultRedisPort,
		BrowserType:       DefaultBrowserType,
	}
}

// LoadConfig applies the .env file and STORECHECK_* / REDIS_* variables on top
// of DefaultConfig. A missing default .env is not an error; a missing explicit
// envFile is.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	cfg.EnvFile = envFile
	cfg.BaseURL = getEnv("STORECHECK_BASE_URL", cfg.BaseURL)
	cfg.OutputDir = getEnv("STORECHECK_OUTPUT_DIR", cfg.OutputDir)
	cfg.Driver = getEnv("STORECHECK_DRIVER", cfg.Driver)
	cfg.CredentialSet = getEnv("STORECHECK_CREDENTIALS", cfg.CredentialSet)
	cfg.FlowsFile = getEnv("STORECHECK_FLOWS_FILE", cfg.FlowsFile)
	cfg.BrowserType = getEnv("STORECHECK_BROWSER_TYPE", cfg.BrowserType)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)

	var err error
	if cfg.Headless, err = envBool("STORECHECK_HEADLESS", cfg.Headless); err != nil {
		return Config{}, err
	}
	if cfg.StepTimeout, err = envDuration("STORECHECK_TIMEOUT", cfg.StepTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NavigationTimeout, err = envDuration("STORECHECK_NAV_TIMEOUT", cfg.NavigationTimeout); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("REDIS_DB: %w", err)
		}
	}
	return cfg, nil
}

// Validate checks the options a run cannot start without.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("base url %q: want an absolute http(s) url", c.BaseURL)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is empty")
	}
	switch c.Driver {
	case DriverPlaywright, DriverRod, DriverChromedp, DriverFleet:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	switch c.CredentialSet {
	case CredentialsGenerated, CredentialsEnv:
	default:
		return fmt.Errorf("unknown credential set %q", c.CredentialSet)
	}
	if c.StepTimeout <= 0 || c.NavigationTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// RedisAddr is the host:port the fleet driver dials when RedisURL is empty.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
