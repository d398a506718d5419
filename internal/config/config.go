package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/strategiq/swot/internal/models"
	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	SecretKey      string                `yaml:"secret_key"`
	AdminToken     string                `yaml:"admin_token"` // guards /api/health/* admin routes; empty disables them
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Timezone       string                `yaml:"timezone"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	AI             AIProvider            `yaml:"ai"`
	Search         SearchConfig          `yaml:"search"`
	Reddit         RedditConfig          `yaml:"reddit"`
	PDFCache       PDFCacheConfig        `yaml:"pdf_cache"`
	PDF            PDFConfig             `yaml:"pdf"`
	HTTP           HTTPClientConfig      `yaml:"http"`
	Validation     ValidationConfig      `yaml:"validation"`
	Input          InputLimitsConfig     `yaml:"input"`
	Status         StatusConfig          `yaml:"status"`
	Archive        ArchiveConfig         `yaml:"archive"`

	// Derived on load.
	RedisURL string `yaml:"-"`
	DSN      string `yaml:"-"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type DatabaseRuntimeConfig struct {
	Enable    bool              `yaml:"enable"`
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
	// RetentionDays bounds how long history rows are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`
}

// AIProvider selects the language model used for SWOT generation.
type AIProvider struct {
	Type            string `yaml:"type"` // openai | openai-compatible | anthropic
	APIKey          string `yaml:"api_key"`
	Endpoint        string `yaml:"endpoint"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

type SearchConfig struct {
	TavilyAPIKey string `yaml:"tavily_api_key"`
	Endpoint     string `yaml:"endpoint"`
	MaxResults   int    `yaml:"max_results"`
}

type RedditConfig struct {
	Enable     bool     `yaml:"enable"`
	Subreddits []string `yaml:"subreddits"`
	Limit      int      `yaml:"limit"`
	UserAgent  string   `yaml:"user_agent"`
}

type PDFCacheConfig struct {
	TTLSeconds             int `yaml:"ttl_seconds"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
}

type PDFConfig struct {
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds"`
}

type HTTPClientConfig struct {
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
}

type ValidationConfig struct {
	MinItems          int `yaml:"min_items"`
	MaxItems          int `yaml:"max_items"`
	MinAnalysisLength int `yaml:"min_analysis_len"`
	MaxAnalysisLength int `yaml:"max_analysis_len"`
}

type InputLimitsConfig struct {
	MaxPrimaryLength    int `yaml:"max_primary_len"`
	MaxComparisonLength int `yaml:"max_comparison_len"`
	MaxComparisonCount  int `yaml:"max_comparison_count"`
}

type StatusConfig struct {
	DelayMinSeconds int `yaml:"delay_min_seconds"`
	DelayMaxSeconds int `yaml:"delay_max_seconds"`
}

type ArchiveConfig struct {
	Enable bool      `yaml:"enable"`
	S3     S3Options `yaml:"s3"`
}

type S3Options struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// Load reads the YAML file at configPath on top of the defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	return Parse(content, path)
}

// Parse decodes YAML content on top of the defaults. name is only used in
// error messages.
func Parse(content []byte, name string) (*AppConfig, error) {
	cfg := Default()
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", name, err)
		}
	}

	applyEnvOverrides(cfg)
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", name, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides a value.
func Default() *AppConfig {
	cfg := &AppConfig{
		Port:      defaultPort,
		Env:       defaultEnv,
		SecretKey: "",
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,

			RetentionDays: defaultHistoryRetentionDays,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		AI: AIProvider{
			Type:            defaultAIType,
			Model:           defaultAIModel,
			MaxOutputTokens: defaultAIMaxOutputTokens,
			MaxAttempts:     defaultAIMaxAttempts,
		},
		Search: SearchConfig{MaxResults: defaultSearchMaxResults},
		Reddit: RedditConfig{
			Subreddits: []string{defaultRedditSubreddit},
			Limit:      defaultRedditLimit,
		},
		PDFCache: PDFCacheConfig{
			TTLSeconds:             defaultPDFCacheTTLSeconds,
			CleanupIntervalSeconds: defaultPDFCacheCleanupSeconds,
		},
		PDF: PDFConfig{GenerationTimeoutSeconds: defaultPDFGenerationTimeoutSec},
		HTTP: HTTPClientConfig{
			RequestTimeoutSeconds: defaultHTTPRequestTimeoutSec,
			ConnectTimeoutSeconds: defaultHTTPConnectTimeoutSec,
		},
		Validation: ValidationConfig{
			MinItems:          defaultMinItemsPerCategory,
			MaxItems:          defaultMaxItemsPerCategory,
			MinAnalysisLength: defaultMinAnalysisLength,
			MaxAnalysisLength: defaultMaxAnalysisLength,
		},
		Input: InputLimitsConfig{
			MaxPrimaryLength:    defaultMaxPrimaryLength,
			MaxComparisonLength: defaultMaxComparisonLength,
			MaxComparisonCount:  defaultMaxComparisonCount,
		},
		Status: StatusConfig{
			DelayMinSeconds: defaultStatusDelayMinSec,
			DelayMaxSeconds: defaultStatusDelayMaxSec,
		},
		Archive: ArchiveConfig{S3: S3Options{Prefix: defaultArchivePrefix}},
	}
	normalize(cfg)
	return cfg
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := lookupEnv("SECRET_KEY"); ok {
		cfg.SecretKey = v
	}
	if v, ok := lookupEnv("ADMIN_TOKEN"); ok {
		cfg.AdminToken = v
	}
	if v, ok := lookupEnv("OPENAI_API_KEY"); ok && cfg.AI.APIKey == "" {
		cfg.AI.APIKey = v
	}
	if v, ok := lookupEnv("ANTHROPIC_API_KEY"); ok && cfg.AI.APIKey == "" && isAnthropic(cfg.AI.Type) {
		cfg.AI.APIKey = v
	}
	if v, ok := lookupEnv("OPENAI_MODEL"); ok {
		cfg.AI.Model = v
	}
	if v, ok := lookupEnv("TAVILY_API_KEY"); ok && cfg.Search.TavilyAPIKey == "" {
		cfg.Search.TavilyAPIKey = v
	}
	if v, ok := lookupEnv("REDDIT_SUBREDDIT"); ok {
		cfg.Reddit.Subreddits = strings.Split(v, ",")
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}
	if cfg.Database.RetentionDays < 0 {
		return fmt.Errorf("invalid database.retention_days %d, expected >= 0", cfg.Database.RetentionDays)
	}
	if cfg.PDFCache.TTLSeconds <= 0 {
		return fmt.Errorf("invalid pdf_cache.ttl_seconds %d, expected > 0", cfg.PDFCache.TTLSeconds)
	}
	if cfg.PDFCache.CleanupIntervalSeconds <= 0 {
		return fmt.Errorf("invalid pdf_cache.cleanup_interval_seconds %d, expected > 0", cfg.PDFCache.CleanupIntervalSeconds)
	}
	if cfg.PDF.GenerationTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid pdf.generation_timeout_seconds %d, expected > 0", cfg.PDF.GenerationTimeoutSeconds)
	}
	if cfg.Validation.MaxItems > 0 && cfg.Validation.MaxItems < cfg.Validation.MinItems {
		return fmt.Errorf("validation.max_items %d is below min_items %d", cfg.Validation.MaxItems, cfg.Validation.MinItems)
	}
	if cfg.Status.DelayMaxSeconds < cfg.Status.DelayMinSeconds {
		return fmt.Errorf("status.delay_max_seconds %d is below delay_min_seconds %d", cfg.Status.DelayMaxSeconds, cfg.Status.DelayMinSeconds)
	}
	if !cfg.IsDev() && cfg.SecretKey == defaultSecretKey {
		return fmt.Errorf("secret_key must be set outside development")
	}
	if cfg.Archive.Enable {
		s3 := cfg.Archive.S3
		if s3.Bucket == "" || s3.Region == "" {
			return fmt.Errorf("archive.s3 requires bucket and region")
		}
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// HistoryRetention returns 0 when history rows never expire.
func (c *AppConfig) HistoryRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// StatusDelay returns the bounds of the pause before each progress message.
func (c *AppConfig) StatusDelay() (time.Duration, time.Duration) {
	return time.Duration(c.Status.DelayMinSeconds) * time.Second,
		time.Duration(c.Status.DelayMaxSeconds) * time.Second
}

func (c *AppConfig) PDFCacheTTL() time.Duration {
	return time.Duration(c.PDFCache.TTLSeconds) * time.Second
}

func (c *AppConfig) PDFCacheCleanupInterval() time.Duration {
	return time.Duration(c.PDFCache.CleanupIntervalSeconds) * time.Second
}

func (c *AppConfig) PDFGenerationTimeout() time.Duration {
	return time.Duration(c.PDF.GenerationTimeoutSeconds) * time.Second
}

func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

func (c *AppConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutSeconds) * time.Second
}

// ValidationLimits converts the validation block for the analysis model.
func (c *AppConfig) ValidationLimits() models.ValidationLimits {
	return models.ValidationLimits{
		MinItems:          c.Validation.MinItems,
		MaxItems:          c.Validation.MaxItems,
		MinAnalysisLength: c.Validation.MinAnalysisLength,
		MaxAnalysisLength: c.Validation.MaxAnalysisLength,
	}
}
