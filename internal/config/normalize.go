package config

import "strings"

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	if cfg.SecretKey == "" {
		cfg.SecretKey = defaultSecretKey
	}
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.AI = normalizeAIConfig(cfg.AI)
	cfg.Search = normalizeSearchConfig(cfg.Search)
	cfg.Reddit = normalizeRedditConfig(cfg.Reddit)
	cfg.Archive.S3 = normalizeS3Options(cfg.Archive.S3)

	if cfg.PDFCache.TTLSeconds == 0 {
		cfg.PDFCache.TTLSeconds = defaultPDFCacheTTLSeconds
	}
	if cfg.PDFCache.CleanupIntervalSeconds == 0 {
		cfg.PDFCache.CleanupIntervalSeconds = defaultPDFCacheCleanupSeconds
	}
	if cfg.PDF.GenerationTimeoutSeconds == 0 {
		cfg.PDF.GenerationTimeoutSeconds = defaultPDFGenerationTimeoutSec
	}
	if cfg.HTTP.RequestTimeoutSeconds <= 0 {
		cfg.HTTP.RequestTimeoutSeconds = defaultHTTPRequestTimeoutSec
	}
	if cfg.HTTP.ConnectTimeoutSeconds <= 0 {
		cfg.HTTP.ConnectTimeoutSeconds = defaultHTTPConnectTimeoutSec
	}
	if cfg.Input.MaxPrimaryLength <= 0 {
		cfg.Input.MaxPrimaryLength = defaultMaxPrimaryLength
	}
	if cfg.Input.MaxComparisonLength <= 0 {
		cfg.Input.MaxComparisonLength = defaultMaxComparisonLength
	}
	if cfg.Input.MaxComparisonCount <= 0 {
		cfg.Input.MaxComparisonCount = defaultMaxComparisonCount
	}
	if cfg.Status.DelayMinSeconds < 0 {
		cfg.Status.DelayMinSeconds = 0
	}

	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.DSN = cfg.Database.DSNValue()
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	cfg.Loc = strings.TrimSpace(cfg.Loc)

	if cfg.Driver == "" {
		cfg.Driver = defaultDBDriver
	}
	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	if cfg.User == "" {
		cfg.User = defaultDBUser
	}
	if cfg.Password == "" {
		cfg.Password = defaultDBPassword
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	if cfg.Charset == "" {
		cfg.Charset = defaultDBCharset
	}
	if cfg.Loc == "" {
		cfg.Loc = defaultDBLoc
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))

	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	if cfg.DB < 0 {
		cfg.DB = defaultRedisDB
	}
	if cfg.Scheme == "" {
		if cfg.TLS {
			cfg.Scheme = "rediss"
		} else {
			cfg.Scheme = "redis"
		}
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeAIConfig(cfg AIProvider) AIProvider {
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)

	if cfg.Type == "" {
		cfg.Type = defaultAIType
	}
	if cfg.Model == "" {
		cfg.Model = defaultAIModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultAIMaxOutputTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultAIMaxAttempts
	}
	return cfg
}

func isAnthropic(providerType string) bool {
	return strings.EqualFold(strings.TrimSpace(providerType), "anthropic")
}

func normalizeSearchConfig(cfg SearchConfig) SearchConfig {
	cfg.TavilyAPIKey = strings.TrimSpace(cfg.TavilyAPIKey)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultSearchMaxResults
	}
	return cfg
}

func normalizeRedditConfig(cfg RedditConfig) RedditConfig {
	subs := make([]string, 0, len(cfg.Subreddits))
	seen := make(map[string]struct{}, len(cfg.Subreddits))
	for _, sub := range cfg.Subreddits {
		name := strings.TrimPrefix(strings.TrimSpace(sub), "r/")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		subs = append(subs, name)
	}
	if len(subs) == 0 {
		subs = []string{defaultRedditSubreddit}
	}
	cfg.Subreddits = subs
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRedditLimit
	}
	cfg.UserAgent = strings.TrimSpace(cfg.UserAgent)
	return cfg
}

func normalizeS3Options(cfg S3Options) S3Options {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.AccessKeyID = strings.TrimSpace(cfg.AccessKeyID)
	cfg.SecretAccessKey = strings.TrimSpace(cfg.SecretAccessKey)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.Region = strings.TrimSpace(cfg.Region)
	cfg.Prefix = strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	return cfg
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
