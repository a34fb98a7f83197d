// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the harvester reads, loaded via Viper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SiteConfig identifies the target site and its article URL shape.
type SiteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ArticlePattern string `mapstructure:"article_pattern"`
}

// HTTPConfig configures the fetch client and its retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxAttempts    int      `mapstructure:"max_attempts"`
	BackoffBase    float64  `mapstructure:"backoff_base"`
	UserAgents     []string `mapstructure:"user_agents"`
	AcceptLanguage string   `mapstructure:"accept_language"`
}

// CrawlConfig governs crawl volume and politeness.
type CrawlConfig struct {
	MaxArticles     int     `mapstructure:"max_articles"`
	Oversample      int     `mapstructure:"oversample"`
	DelayMinSeconds float64 `mapstructure:"delay_min_seconds"`
	DelayMaxSeconds float64 `mapstructure:"delay_max_seconds"`
}

// OutputConfig sets the two sink paths.
type OutputConfig struct {
	JSONLPath string `mapstructure:"jsonl_path"`
	CSVPath   string `mapstructure:"csv_path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Timeout returns the HTTP timeout as a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DelayWindow returns the politeness delay bounds as durations.
func (c CrawlConfig) DelayWindow() (time.Duration, time.Duration) {
	min := time.Duration(c.DelayMinSeconds * float64(time.Second))
	max := time.Duration(c.DelayMaxSeconds * float64(time.Second))
	return min, max
}

// Load builds a Config from an optional file plus the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://www.bbc.co.uk")
	v.SetDefault("site.article_pattern", `^/news/articles/[a-z0-9]+$`)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base", 1.5)
	v.SetDefault("http.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	})
	v.SetDefault("http.accept_language", "en-GB,en;q=0.9")
	v.SetDefault("crawl.max_articles", 20)
	v.SetDefault("crawl.oversample", 5)
	v.SetDefault("crawl.delay_min_seconds", 2.0)
	v.SetDefault("crawl.delay_max_seconds", 5.0)
	v.SetDefault("output.jsonl_path", "articles.jsonl")
	v.SetDefault("output.csv_path", "articles.csv")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	parsed, err := url.Parse(c.Site.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL, got %q", c.Site.BaseURL)
	}
	if _, err := regexp.Compile("(?i)" + c.Site.ArticlePattern); err != nil {
		return fmt.Errorf("site.article_pattern is not a valid regexp: %w", err)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.BackoffBase <= 1 {
		return fmt.Errorf("http.backoff_base must be > 1")
	}
	if len(c.HTTP.UserAgents) == 0 {
		return fmt.Errorf("http.user_agents must not be empty")
	}
	if c.Crawl.MaxArticles <= 0 {
		return fmt.Errorf("crawl.max_articles must be > 0")
	}
	if c.Crawl.Oversample <= 0 {
		return fmt.Errorf("crawl.oversample must be > 0")
	}
	if c.Crawl.DelayMinSeconds < 0 || c.Crawl.DelayMaxSeconds < c.Crawl.DelayMinSeconds {
		return fmt.Errorf("crawl delay window [%v, %v] is invalid", c.Crawl.DelayMinSeconds, c.Crawl.DelayMaxSeconds)
	}
	if c.Output.JSONLPath == "" || c.Output.CSVPath == "" {
		return fmt.Errorf("output paths must not be empty")
	}
	return nil
}
