package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Scoring holds the qualification thresholds and score weights. Every magic
// number the pipeline relies on lives here so ops can tune temperature bands
// without a code change.
type Scoring struct {
	FinancialWeight  float64
	UrgencyWeight    float64
	EngagementWeight float64

	HotThreshold      int
	WarmThreshold     int
	LukewarmThreshold int
	ColdThreshold     int

	QualifyThreshold int
	HotPathThreshold int

	// BriefThreshold gates the executive brief: buyers whose motivation
	// score clears it get a summary synced to the CRM.
	BriefThreshold int
}

// Finance holds the affordability model inputs and budget extraction rules.
type Finance struct {
	AnnualRate        float64
	TermYears         int
	DownPaymentRate   float64
	MonthlyTaxRate    float64
	MonthlyInsurance  float64
	ShorthandMinValue float64
	ShorthandMaxValue float64
	BudgetMinFraction float64
}

// Messaging holds outbound message shaping limits.
type Messaging struct {
	SoftLimit        int
	HardLimit        int
	MaxInboundLength int
}

// Retry holds the external call retry policy.
type Retry struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFactor   float64
	CallTimeout    time.Duration
}

// FollowUp holds follow-up delays keyed by lead temperature.
type FollowUp struct {
	HotDelay     time.Duration
	WarmDelay    time.Duration
	DefaultDelay time.Duration
}

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	JWTAccessSecret string

	CORSAllowAll bool
	CORSOrigins  []string

	RateLimitPerSecond float64
	RateLimitBurst     int

	MoonshotAPIKey  string
	MoonshotBaseURL string
	MoonshotModel   string

	PropertyAPIBaseURL string
	PropertyAPIKey     string
	CRMBaseURL         string
	CRMAPIKey          string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	ComplianceInbox  string

	Scoring   Scoring
	Finance   Finance
	Messaging Messaging
	Retry     Retry
	FollowUp  FollowUp
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	smtpHost := getEnv("SMTP_HOST", "")

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,

		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),

		MoonshotAPIKey:  getEnv("MOONSHOT_API_KEY", ""),
		MoonshotBaseURL: getEnv("MOONSHOT_BASE_URL", "https://api.moonshot.ai/v1"),
		MoonshotModel:   getEnv("MOONSHOT_MODEL", "kimi-k2-turbo-preview"),

		PropertyAPIBaseURL: getEnv("PROPERTY_API_BASE_URL", ""),
		PropertyAPIKey:     getEnv("PROPERTY_API_KEY", ""),
		CRMBaseURL:         getEnv("CRM_BASE_URL", ""),
		CRMAPIKey:          getEnv("CRM_API_KEY", ""),

		KafkaEnabled: strings.EqualFold(getEnv("KAFKA_ENABLED", "false"), "true"),
		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "buyerbot.events"),

		EmailEnabled:     emailEnabled && smtpHost != "",
		SMTPHost:         smtpHost,
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "BuyerBot"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		ComplianceInbox:  getEnv("COMPLIANCE_INBOX", ""),

		Scoring: Scoring{
			FinancialWeight:   getEnvFloat("SCORE_FINANCIAL_WEIGHT", 0.40),
			UrgencyWeight:     getEnvFloat("SCORE_URGENCY_WEIGHT", 0.35),
			EngagementWeight:  getEnvFloat("SCORE_ENGAGEMENT_WEIGHT", 0.25),
			HotThreshold:      getEnvInt("TEMP_HOT_THRESHOLD", 75),
			WarmThreshold:     getEnvInt("TEMP_WARM_THRESHOLD", 50),
			LukewarmThreshold: getEnvInt("TEMP_LUKEWARM_THRESHOLD", 35),
			ColdThreshold:     getEnvInt("TEMP_COLD_THRESHOLD", 20),
			QualifyThreshold:  getEnvInt("QUALIFY_THRESHOLD", 70),
			HotPathThreshold:  getEnvInt("HOT_PATH_THRESHOLD", 80),
			BriefThreshold:    getEnvInt("EXEC_BRIEF_THRESHOLD", 80),
		},
		Finance: Finance{
			AnnualRate:        getEnvFloat("MORTGAGE_ANNUAL_RATE", 0.068),
			TermYears:         getEnvInt("MORTGAGE_TERM_YEARS", 30),
			DownPaymentRate:   getEnvFloat("DOWN_PAYMENT_RATE", 0.20),
			MonthlyTaxRate:    getEnvFloat("MONTHLY_TAX_RATE", 0.0012),
			MonthlyInsurance:  getEnvFloat("MONTHLY_INSURANCE", 150),
			ShorthandMinValue: getEnvFloat("BUDGET_SHORTHAND_MIN", 100),
			ShorthandMaxValue: getEnvFloat("BUDGET_SHORTHAND_MAX", 1000),
			BudgetMinFraction: getEnvFloat("BUDGET_MIN_FRACTION", 0.8),
		},
		Messaging: Messaging{
			SoftLimit:        getEnvInt("SMS_SOFT_LIMIT", 290),
			HardLimit:        getEnvInt("SMS_HARD_LIMIT", 320),
			MaxInboundLength: getEnvInt("MAX_INBOUND_LENGTH", 2000),
		},
		Retry: Retry{
			MaxRetries:     getEnvInt("RETRY_MAX_RETRIES", 2),
			InitialBackoff: mustDuration(getEnv("RETRY_INITIAL_BACKOFF", "500ms")),
			MaxBackoff:     mustDuration(getEnv("RETRY_MAX_BACKOFF", "5s")),
			JitterFactor:   getEnvFloat("RETRY_JITTER_FACTOR", 0.2),
			CallTimeout:    mustDuration(getEnv("EXTERNAL_CALL_TIMEOUT", "30s")),
		},
		FollowUp: FollowUp{
			HotDelay:     mustDuration(getEnv("FOLLOWUP_HOT_DELAY", "1h")),
			WarmDelay:    mustDuration(getEnv("FOLLOWUP_WARM_DELAY", "24h")),
			DefaultDelay: mustDuration(getEnv("FOLLOWUP_DEFAULT_DELAY", "72h")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.EmailEnabled && cfg.ComplianceInbox == "" {
		return nil, fmt.Errorf("COMPLIANCE_INBOX is required when email is enabled")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
