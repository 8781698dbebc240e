package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL     = "https://db.netkeiba.com"
	DefaultTrack       = "京都"
	DefaultTargetYear  = 2024
	DefaultOutputDir   = "race_data"
	DefaultLogFile     = "scraping.log"
	DefaultDaysToFetch = 365
	DebugDaysToFetch   = 7
	EnvPrefix          = "KEIBA"
)

// Config is the immutable run configuration.
type Config struct {
	BaseURL    string
	Track      string
	Months     []int
	TargetYear int
	// StartDate is the first day scanned by the date-driven strategy.
	StartDate   time.Time
	DaysToFetch int
	Debug       bool
	// DisableFilter accepts every race regardless of Track and Months.
	DisableFilter bool

	OutputDir string
	LogFile   string
	LogLevel  string

	MinDelay        time.Duration
	MaxDelay        time.Duration
	Timeout         time.Duration
	RandomUserAgent bool

	Combinatorial Ranges
}

// Ranges bounds the identifier parts enumerated by the combinatorial strategy.
type Ranges struct {
	Venues   []int
	Meetings []int
	Days     []int
	Races    []int
}

// Option adjusts the viper instance after defaults, files and environment
// have been registered, for example to apply command-line flags.
type Option func(v *viper.Viper)

// WithOverride forces key to value.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads configuration. path may name an explicit config file; when empty,
// config.yaml is looked up in the working directory and ./config.
func Load(path string, opts ...Option) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	for _, opt := range opts {
		opt(v)
	}
	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("track", DefaultTrack)
	v.SetDefault("months", "6-8")
	v.SetDefault("target_year", DefaultTargetYear)
	v.SetDefault("debug", false)
	v.SetDefault("disable_filter", false)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("min_delay", "1s")
	v.SetDefault("max_delay", "1s")
	v.SetDefault("timeout", "30s")
	v.SetDefault("random_user_agent", false)
	v.SetDefault("combinatorial.venues", "1-10")
	v.SetDefault("combinatorial.meetings", "1-6")
	v.SetDefault("combinatorial.days", "1-12")
	v.SetDefault("combinatorial.races", "1-12")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BaseURL:         strings.TrimRight(v.GetString("base_url"), "/"),
		Track:           v.GetString("track"),
		TargetYear:      v.GetInt("target_year"),
		Debug:           v.GetBool("debug"),
		DisableFilter:   v.GetBool("disable_filter"),
		OutputDir:       v.GetString("output_dir"),
		LogFile:         v.GetString("log_file"),
		LogLevel:        v.GetString("log_level"),
		MinDelay:        v.GetDuration("min_delay"),
		MaxDelay:        v.GetDuration("max_delay"),
		Timeout:         v.GetDuration("timeout"),
		RandomUserAgent: v.GetBool("random_user_agent"),
	}

	var err error
	if cfg.Months, err = ParseIntList(v.Get("months")); err != nil {
		return nil, fmt.Errorf("months: %w", err)
	}

	cfg.DaysToFetch = DefaultDaysToFetch
	if cfg.Debug {
		cfg.DaysToFetch = DebugDaysToFetch
		cfg.LogLevel = "debug"
	}
	if v.IsSet("days_to_fetch") {
		cfg.DaysToFetch = v.GetInt("days_to_fetch")
	}

	cfg.StartDate = time.Date(cfg.TargetYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	if s := v.GetString("start_date"); s != "" {
		if cfg.StartDate, err = time.Parse("2006-01-02", s); err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
	}

	ranges := []struct {
		key  string
		dest *[]int
	}{
		{"combinatorial.venues", &cfg.Combinatorial.Venues},
		{"combinatorial.meetings", &cfg.Combinatorial.Meetings},
		{"combinatorial.days", &cfg.Combinatorial.Days},
		{"combinatorial.races", &cfg.Combinatorial.Races},
	}
	for _, r := range ranges {
		if *r.dest, err = ParseIntList(v.Get(r.key)); err != nil {
			return nil, fmt.Errorf("%s: %w", r.key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("invalid delay bounds %s..%s", c.MinDelay, c.MaxDelay)
	}
	if c.DaysToFetch < 0 {
		return fmt.Errorf("days_to_fetch must not be negative: %d", c.DaysToFetch)
	}
	for _, m := range c.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("month out of range: %d", m)
		}
	}
	return nil
}

// ParseIntList accepts a list of ints, or a string of comma separated values
// and inclusive ranges such as "1-3,7".
func ParseIntList(raw any) ([]int, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return []int{val}, nil
	case []int:
		return append([]int(nil), val...), nil
	case []any:
		out := make([]int, 0, len(val))
		for _, item := range val {
			n, err := ParseIntList(item)
			if err != nil {
				return nil, err
			}
			out = append(out, n...)
		}
		return out, nil
	case string:
		return parseIntString(val)
	default:
		return parseIntString(fmt.Sprint(val))
	}
}

func parseIntString(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		if end < start {
			return nil, fmt.Errorf("descending range %q", part)
		}
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
	}
	return out, nil
}
