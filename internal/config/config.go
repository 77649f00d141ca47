// Package config loads the pipeline configuration from YAML, a .env
// file, and environment overrides for secrets. Fail-fast: a config that
// does not validate never reaches the pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ctsc/internship-tracker/internal/match"
	"github.com/ctsc/internship-tracker/internal/reconcile"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "15s" or "2m".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Board identifies one ATS job board to poll.
type Board struct {
	Company string `yaml:"company"`
	// Slug is the board identifier in the ATS URL, e.g. "stripe" in
	// boards-api.greenhouse.io/v1/boards/stripe/jobs.
	Slug string `yaml:"slug"`
}

// ScrapeSource is one career page scraped directly.
type ScrapeSource struct {
	Company string `yaml:"company"`
	URL     string `yaml:"url"`
}

// GitHubMonitor tracks another repository's README for new listings.
type GitHubMonitor struct {
	Repo   string `yaml:"repo"`   // "owner/name"
	Branch string `yaml:"branch"` // default "main"
	File   string `yaml:"file"`   // default "README.md"
}

// Filters narrow discovery results before validation.
type Filters struct {
	// KeywordsInclude marks a title as internship-related. Defaults to
	// intern/internship/co-op when empty.
	KeywordsInclude []string `yaml:"keywords_include"`
	// KeywordsExclude discards titles outright (senior, staff, ...).
	KeywordsExclude []string `yaml:"keywords_exclude"`
}

// LinkCheck configures the apply-URL prober.
type LinkCheck struct {
	// Timeout per request. Default: 15s.
	Timeout Duration `yaml:"timeout"`
	// Concurrency bounds parallel probes. Default: 8.
	Concurrency int `yaml:"concurrency"`
	// PerDomainPerSecond rate-limits requests to one domain. Default: 2.
	PerDomainPerSecond float64 `yaml:"per_domain_per_second"`
}

// AI configures the validation/enrichment classifier. The API key is
// never read from YAML; ANTHROPIC_API_KEY only.
type AI struct {
	// Model override; empty selects the classifier's default.
	Model string `yaml:"model"`
	// MaxRetries for transient API failures. Default: 2.
	MaxRetries int `yaml:"max_retries"`
	// RequestTimeout per call. Default: 30s.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// GitHub configures community-submission intake via repo issues.
type GitHub struct {
	// Repo is this tracker's own repository, "owner/name". Empty
	// disables issue intake.
	Repo string `yaml:"repo"`
	// IntakeLabel selects issues to ingest. Default: "new-internship".
	IntakeLabel string `yaml:"intake_label"`
	Token       string `yaml:"-"` // GITHUB_TOKEN env only
}

// Email configures the SMTP digest. Enabled only when every field and
// the SMTP_PASSWORD env var are set.
type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	SMTPUser   string `yaml:"smtp_user"`
	SMTPPass   string `yaml:"-"` // SMTP_PASSWORD env only
	From       string `yaml:"from"`
	To         string `yaml:"to"`
}

// Enabled reports whether the digest has everything it needs to send.
func (e Email) Enabled() bool {
	return e.SMTPServer != "" && e.SMTPUser != "" && e.SMTPPass != "" && e.From != "" && e.To != ""
}

// Telegram configures the Telegram digest. Token comes from
// TELEGRAM_BOT_TOKEN; a zero chat id disables it.
type Telegram struct {
	ChatID int64  `yaml:"chat_id"`
	Token  string `yaml:"-"`
}

// Enabled reports whether the Telegram digest can send.
func (t Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// Config is the full runtime configuration.
type Config struct {
	// StorePath is the persisted store document. Default: data/store.json.
	StorePath string `yaml:"store_path"`
	// LockPath is the run lock file. Default: data/.run-lock.
	LockPath string `yaml:"lock_path"`
	// DataDir holds raw discovery snapshots and monitor state.
	// Default: data.
	DataDir string `yaml:"data_dir"`
	// ReadmePath is the rendered listing table. Default: README.md.
	ReadmePath string `yaml:"readme_path"`

	GreenhouseBoards []Board         `yaml:"greenhouse_boards"`
	LeverBoards      []Board         `yaml:"lever_boards"`
	AshbyBoards      []Board         `yaml:"ashby_boards"`
	ScrapeSources    []ScrapeSource  `yaml:"scrape_sources"`
	GitHubMonitors   []GitHubMonitor `yaml:"github_monitors"`

	Filters   Filters                   `yaml:"filters"`
	Match     match.Config              `yaml:"match"`
	Archival  reconcile.ArchivalConfig  `yaml:"archival"`
	LinkCheck LinkCheck                 `yaml:"link_check"`
	AI        AI                        `yaml:"ai"`
	GitHub    GitHub                    `yaml:"github"`
	Email     Email                     `yaml:"email"`
	Telegram  Telegram                  `yaml:"telegram"`

	// ScheduleEvery is the daemon-mode cron interval in hours. Default: 6.
	ScheduleEvery int `yaml:"schedule_every_hours"`
}

// Default returns a config with every tunable at its standard value and
// no sources configured.
func Default() *Config {
	return &Config{
		StorePath:     "data/store.json",
		LockPath:      "data/.run-lock",
		DataDir:       "data",
		ReadmePath:    "README.md",
		Filters:       Filters{KeywordsInclude: []string{"intern", "internship", "co-op", "coop"}},
		Match:         match.DefaultConfig(),
		Archival:      reconcile.DefaultArchivalConfig(),
		LinkCheck:     LinkCheck{Timeout: Duration(15 * time.Second), Concurrency: 8, PerDomainPerSecond: 2},
		AI:            AI{MaxRetries: 2, RequestTimeout: Duration(30 * time.Second)},
		GitHub:        GitHub{IntakeLabel: "new-internship"},
		ScheduleEvery: 6,
	}
}

// Load reads the YAML file at path, overlaying it on defaults, then
// applies .env and environment overrides. A missing config file is fine:
// defaults plus environment make a runnable setup.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	c.Email.SMTPPass = os.Getenv("SMTP_PASSWORD")
	c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
}

// applyDefaults refills zero values a sparse YAML document left behind.
func (c *Config) applyDefaults() {
	d := Default()
	if c.StorePath == "" {
		c.StorePath = d.StorePath
	}
	if c.LockPath == "" {
		c.LockPath = d.LockPath
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.ReadmePath == "" {
		c.ReadmePath = d.ReadmePath
	}
	if len(c.Filters.KeywordsInclude) == 0 {
		c.Filters.KeywordsInclude = d.Filters.KeywordsInclude
	}
	if c.Match == (match.Config{}) {
		c.Match = d.Match
	}
	if c.Archival == (reconcile.ArchivalConfig{}) {
		c.Archival = d.Archival
	}
	if c.LinkCheck.Timeout == 0 {
		c.LinkCheck.Timeout = d.LinkCheck.Timeout
	}
	if c.LinkCheck.Concurrency == 0 {
		c.LinkCheck.Concurrency = d.LinkCheck.Concurrency
	}
	if c.LinkCheck.PerDomainPerSecond == 0 {
		c.LinkCheck.PerDomainPerSecond = d.LinkCheck.PerDomainPerSecond
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = d.AI.MaxRetries
	}
	if c.AI.RequestTimeout == 0 {
		c.AI.RequestTimeout = d.AI.RequestTimeout
	}
	if c.GitHub.IntakeLabel == "" {
		c.GitHub.IntakeLabel = d.GitHub.IntakeLabel
	}
	if c.ScheduleEvery == 0 {
		c.ScheduleEvery = d.ScheduleEvery
	}
	for i := range c.GitHubMonitors {
		if c.GitHubMonitors[i].Branch == "" {
			c.GitHubMonitors[i].Branch = "main"
		}
		if c.GitHubMonitors[i].File == "" {
			c.GitHubMonitors[i].File = "README.md"
		}
	}
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if err := c.Match.Validate(); err != nil {
		return fmt.Errorf("match: %w", err)
	}
	if err := c.Archival.Validate(); err != nil {
		return fmt.Errorf("archival: %w", err)
	}
	if c.LinkCheck.Concurrency < 1 || c.LinkCheck.Concurrency > 64 {
		return fmt.Errorf("link_check.concurrency must be between 1 and 64 (got %d)", c.LinkCheck.Concurrency)
	}
	if c.LinkCheck.PerDomainPerSecond <= 0 {
		return fmt.Errorf("link_check.per_domain_per_second must be positive (got %g)", c.LinkCheck.PerDomainPerSecond)
	}
	if c.LinkCheck.Timeout <= 0 {
		return fmt.Errorf("link_check.timeout must be positive (got %v)", c.LinkCheck.Timeout.Std())
	}
	if c.AI.MaxRetries < 0 || c.AI.MaxRetries > 10 {
		return fmt.Errorf("ai.max_retries must be between 0 and 10 (got %d)", c.AI.MaxRetries)
	}
	if c.ScheduleEvery < 1 || c.ScheduleEvery > 168 {
		return fmt.Errorf("schedule_every_hours must be between 1 and 168 (got %d)", c.ScheduleEvery)
	}
	for _, m := range c.GitHubMonitors {
		if m.Repo == "" {
			return fmt.Errorf("github_monitors entries require a repo (owner/name)")
		}
	}
	for _, s := range c.ScrapeSources {
		if s.Company == "" || s.URL == "" {
			return fmt.Errorf("scrape_sources entries require company and url")
		}
	}
	return nil
}
