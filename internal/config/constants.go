package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = "development"
	defaultSecretKey  = "strategiq-dev-secret-change-me"

	defaultDBDriver   = "mysql"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "strategiq"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultHistoryRetentionDays = 90

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultAIType            = "openai"
	defaultAIModel           = "gpt-4o"
	defaultAIMaxOutputTokens = 4096
	defaultAIMaxAttempts     = 3

	defaultSearchMaxResults = 5
	defaultRedditSubreddit  = "python"
	defaultRedditLimit      = 10

	// PDF generation and caching
	defaultPDFCacheTTLSeconds      = 300
	defaultPDFCacheCleanupSeconds  = 60
	defaultPDFGenerationTimeoutSec = 60

	// External API configuration
	defaultHTTPRequestTimeoutSec = 30
	defaultHTTPConnectTimeoutSec = 10

	// SWOT analysis validation
	defaultMinItemsPerCategory = 2
	defaultMaxItemsPerCategory = 10
	defaultMinAnalysisLength   = 100
	defaultMaxAnalysisLength   = 5000

	// Input validation
	defaultMaxPrimaryLength    = 500
	defaultMaxComparisonLength = 2000
	defaultMaxComparisonCount  = 10

	// Status updates
	defaultStatusDelayMinSec = 0
	defaultStatusDelayMaxSec = 5

	defaultArchivePrefix = "reports"
)
